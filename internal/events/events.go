// Package events publishes notifications about committed appointment changes for
// downstream consumers such as reminder or reporting services.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

type Type string

const (
	AppointmentCreated Type = "appointment.created"
	AppointmentUpdated Type = "appointment.updated"
	AppointmentDeleted Type = "appointment.deleted"
)

type Event struct {
	ID              uuid.UUID `json:"id"`
	Type            Type      `json:"type"`
	OccurredAt      time.Time `json:"occurredAt"`
	AppointmentID   uuid.UUID `json:"appointmentId"`
	EmployeeID      uuid.UUID `json:"employeeId"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	DurationMinutes int       `json:"duration"`
}

// NewAppointmentEvent describes a change to a. It never fails; if no v7 id can be
// generated it falls back to a random one.
func NewAppointmentEvent(t Type, a domain.Appointment) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:              id,
		Type:            t,
		OccurredAt:      time.Now().UTC(),
		AppointmentID:   a.ID,
		EmployeeID:      a.EmployeeID,
		Date:            a.Date.String(),
		Start:           a.Start.String(),
		DurationMinutes: a.DurationMinutes,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event. It is used when events are disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
