package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

// BookingKey identifies the set of appointments that must not overlap.
type BookingKey struct {
	EmployeeID uuid.UUID
	Date       domain.Date
}

func (k BookingKey) String() string {
	return k.EmployeeID.String() + "/" + k.Date.String()
}

// AppointmentFilter narrows ListAppointments. Zero fields match everything.
type AppointmentFilter struct {
	EmployeeID uuid.UUID
	Date       domain.Date
	From       domain.Date
	To         domain.Date
}

type AppointmentRepository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	// ListByEmployeeAndDate returns every appointment for the key, never truncated.
	ListByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, date domain.Date) ([]domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// InBookingTransaction runs fn in one transaction serialized against other booking
	// transactions on any of keys. If fn returns an error nothing is committed.
	InBookingTransaction(ctx context.Context, keys []BookingKey, fn func(ctx context.Context, tx BookingTx) error) error
}

// BookingTx is the view of storage available inside a booking transaction.
type BookingTx interface {
	GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error)
	// GetSettings returns the settings singleton, creating it with defaults if absent.
	GetSettings(ctx context.Context) (domain.CalendarSettings, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, date domain.Date) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
