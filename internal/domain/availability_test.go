package domain

import (
	"testing"
	"time"
)

func TestEffectiveHours_Precedence(t *testing.T) {
	settings := CalendarSettings{
		WeeklyHours: WeeklyHours{
			time.Monday:  {Enabled: true, Start: 8, End: 16},
			time.Tuesday: {Enabled: true, Start: 8, End: 16},
			time.Sunday:  {Enabled: false, Start: 9, End: 17},
		},
	}
	employee := Employee{
		WeeklyHours: WeeklyHours{
			time.Monday:  {Enabled: true, Start: 10, End: 18},
			time.Tuesday: {Enabled: false, Start: 12, End: 13},
		},
	}
	tuesday := monday.AddDays(1)
	sunday := monday.AddDays(-1)

	tests := []struct {
		name         string
		date         Date
		employee     Employee
		settings     CalendarSettings
		want         DayHours
		availability Availability
	}{
		{
			name:         "employee override",
			date:         monday,
			employee:     employee,
			settings:     settings,
			want:         DayHours{Enabled: true, Start: 10, End: 18},
			availability: AvailabilityWorking,
		},
		{
			name:         "disabled employee day falls back to global",
			date:         tuesday,
			employee:     employee,
			settings:     settings,
			want:         DayHours{Enabled: true, Start: 8, End: 16},
			availability: AvailabilityWorking,
		},
		{
			name:         "nothing enabled",
			date:         sunday,
			employee:     employee,
			settings:     settings,
			availability: AvailabilityOff,
		},
		{
			name: "employee holiday beats override",
			date: monday,
			employee: func() Employee {
				e := employee
				e.Holidays = Holidays{{Start: monday, End: monday}}
				return e
			}(),
			settings:     settings,
			availability: AvailabilityHoliday,
		},
		{
			name:     "global holiday beats everything",
			date:     tuesday,
			employee: employee,
			settings: func() CalendarSettings {
				s := settings
				s.Holidays = Holidays{{Start: monday, End: tuesday}}
				return s
			}(),
			availability: AvailabilityHoliday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, availability := EffectiveHours(tt.employee, tt.settings, tt.date)
			if availability != tt.availability {
				t.Fatalf("availability = %s, want %s", availability, tt.availability)
			}
			if got != tt.want {
				t.Fatalf("hours = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDefaultSettings_WeekdaysOnly(t *testing.T) {
	s := DefaultSettings()
	if s.ID != SettingsID {
		t.Fatalf("id = %q, want %q", s.ID, SettingsID)
	}
	if len(s.Validate()) != 0 {
		t.Fatalf("default settings invalid: %v", s.Validate())
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		h, ok := s.WeeklyHours.For(day)
		if !ok {
			t.Fatalf("%s missing", day)
		}
		weekend := day == time.Saturday || day == time.Sunday
		if h.Enabled == weekend {
			t.Fatalf("%s enabled = %v", day, h.Enabled)
		}
	}
}
