package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type RejectionKind string

const (
	RejectUnknownEmployee        RejectionKind = "UnknownEmployee"
	RejectInvalidTimeRange       RejectionKind = "InvalidTimeRange"
	RejectEmployeeUnavailable    RejectionKind = "EmployeeUnavailable"
	RejectOutsideWorkingHours    RejectionKind = "OutsideWorkingHours"
	RejectConflictingAppointment RejectionKind = "ConflictingAppointment"
)

// Rejection explains why a proposed appointment is not admissible.
type Rejection struct {
	Kind   RejectionKind
	Reason string
	// ConflictingID is set for RejectConflictingAppointment when the other appointment is known.
	ConflictingID uuid.UUID
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Reason
}

func reject(kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a Rejection of the given kind.
func IsRejection(err error, kind RejectionKind) bool {
	var r *Rejection
	return errors.As(err, &r) && r.Kind == kind
}

// Evaluate decides whether proposed may be stored. existing holds the appointments already
// booked for the same employee and date; the one with excludingID is ignored so an update
// never conflicts with itself. employee is nil when the referenced employee does not exist.
// On success proposed is returned unchanged.
func Evaluate(proposed Appointment, existing []Appointment, employee *Employee, settings CalendarSettings, excludingID uuid.UUID) (Appointment, error) {
	if employee == nil || employee.ID != proposed.EmployeeID {
		return Appointment{}, reject(RejectUnknownEmployee, "employee %s does not exist", proposed.EmployeeID)
	}

	start := proposed.Start
	switch {
	case proposed.Date.IsZero():
		return Appointment{}, reject(RejectInvalidTimeRange, "date is required")
	case proposed.DurationMinutes <= 0:
		return Appointment{}, reject(RejectInvalidTimeRange, "duration must be positive")
	case start < 0 || start >= EndOfDay:
		return Appointment{}, reject(RejectInvalidTimeRange, "start must be between 00:00 and 23:59")
	case proposed.DurationMinutes > MinutesPerDay-int(start):
		// Compared before computing the end so huge durations cannot wrap around.
		return Appointment{}, reject(RejectInvalidTimeRange, "appointment starting %s for %d minutes ends after midnight", start, proposed.DurationMinutes)
	}
	end := proposed.End()

	hours, availability := EffectiveHours(*employee, settings, proposed.Date)
	switch availability {
	case AvailabilityHoliday:
		return Appointment{}, reject(RejectEmployeeUnavailable, "holiday")
	case AvailabilityOff:
		return Appointment{}, reject(RejectOutsideWorkingHours, "no working hours on %s", proposed.Date.Weekday())
	}
	if !hours.Covers(start, end) {
		return Appointment{}, reject(RejectOutsideWorkingHours, "%s-%s is outside working hours %s", start, end.String(), hours)
	}

	var conflict *Appointment
	for i := range existing {
		other := &existing[i]
		if excludingID != uuid.Nil && other.ID == excludingID {
			continue
		}
		if other.EmployeeID != proposed.EmployeeID || other.Date != proposed.Date {
			continue
		}
		if !Overlaps(start, end, other.Start, other.End()) {
			continue
		}
		if conflict == nil || other.Start < conflict.Start ||
			(other.Start == conflict.Start && other.ID.String() < conflict.ID.String()) {
			conflict = other
		}
	}
	if conflict != nil {
		r := reject(RejectConflictingAppointment, "overlaps appointment %s at %s-%s", conflict.ID, conflict.Start, conflict.End())
		r.ConflictingID = conflict.ID
		return Appointment{}, r
	}

	return proposed, nil
}
