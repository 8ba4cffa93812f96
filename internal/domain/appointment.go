package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	EmployeeID      uuid.UUID `bun:"employee_id,notnull,type:uuid"`
	Date            Date      `bun:"date,notnull,type:date"`
	Start           ClockTime `bun:"start_minute,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	CustomerName    string    `bun:"customer_name,notnull"`
	Phone           string    `bun:"phone"`
	Email           string    `bun:"email"`
	ServiceID       string    `bun:"service_id"`
	Notes           string    `bun:"notes"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`

	// EmployeeMissing is set on reads when the referenced employee has been deleted.
	EmployeeMissing bool `bun:"-"`
}

func (a Appointment) End() ClockTime {
	return a.Start.Add(a.DurationMinutes)
}

// Overlaps reports whether two half-open intervals [s1, e1) and [s2, e2) intersect.
func Overlaps(s1, e1, s2, e2 ClockTime) bool {
	return s1 < e2 && s2 < e1
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
