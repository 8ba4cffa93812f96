package domain

// Availability says why an employee can or cannot be booked on a date.
type Availability int

const (
	// AvailabilityOff means no enabled hours exist for the weekday at either level.
	AvailabilityOff Availability = iota
	AvailabilityWorking
	AvailabilityHoliday
)

func (a Availability) String() string {
	switch a {
	case AvailabilityWorking:
		return "working"
	case AvailabilityHoliday:
		return "holiday"
	default:
		return "off"
	}
}

// EffectiveHours resolves the bookable interval for an employee on a date.
// Precedence: global holiday, employee holiday, employee weekday hours, global weekday hours.
func EffectiveHours(employee Employee, settings CalendarSettings, date Date) (DayHours, Availability) {
	if settings.Holidays.Contains(date) || employee.Holidays.Contains(date) {
		return DayHours{}, AvailabilityHoliday
	}
	weekday := date.Weekday()
	if h, ok := employee.WeeklyHours.For(weekday); ok && h.Enabled {
		return h, AvailabilityWorking
	}
	if h, ok := settings.WeeklyHours.For(weekday); ok && h.Enabled {
		return h, AvailabilityWorking
	}
	return DayHours{}, AvailabilityOff
}
