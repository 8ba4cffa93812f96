package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SettingsID is the key of the single CalendarSettings record.
const SettingsID = "default"

// Service is a bookable offering. Its duration pre-fills new appointments.
type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration"`
}

type Services []Service

func (s Services) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Service(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Services) Scan(src any) error {
	return scanJSON(src, s)
}

type CalendarSettings struct {
	bun.BaseModel `bun:"table:calendar_settings"`

	ID          string      `bun:"id,pk"`
	Name        string      `bun:"name,notnull"`
	WeeklyHours WeeklyHours `bun:"weekly_hours,type:text"`
	Holidays    Holidays    `bun:"holidays,type:text"`
	Services    Services    `bun:"services,type:text"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull"`
}

// DefaultSettings is what a fresh installation starts with: Monday to Friday, 09:00 to 17:00.
func DefaultSettings() CalendarSettings {
	hours := make(WeeklyHours, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		enabled := day != time.Saturday && day != time.Sunday
		hours[day] = DayHours{Enabled: enabled, Start: 9, End: 17}
	}
	return CalendarSettings{
		ID:          SettingsID,
		Name:        "Kalender",
		WeeklyHours: hours,
		Holidays:    Holidays{},
		Services:    Services{},
	}
}

func (s CalendarSettings) Service(id string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

func (s CalendarSettings) Validate() map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(s.Name) == "" {
		problems["name"] = "calendar name is required"
	}
	if err := s.WeeklyHours.Validate(); err != nil {
		problems["weeklyHours"] = err.Error()
	}
	if err := s.Holidays.Validate(); err != nil {
		problems["holidays"] = err.Error()
	}
	seen := make(map[string]struct{}, len(s.Services))
	for i, svc := range s.Services {
		switch {
		case strings.TrimSpace(svc.ID) == "":
			problems["services"] = fmt.Sprintf("service %d: id is required", i)
		case strings.TrimSpace(svc.Name) == "":
			problems["services"] = fmt.Sprintf("service %q: name is required", svc.ID)
		case svc.DurationMinutes <= 0:
			problems["services"] = fmt.Sprintf("service %q: duration must be positive", svc.ID)
		case svc.DurationMinutes > MinutesPerDay:
			problems["services"] = fmt.Sprintf("service %q: duration must not exceed %d minutes", svc.ID, MinutesPerDay)
		}
		if _, dup := seen[svc.ID]; dup {
			problems["services"] = fmt.Sprintf("service %q: duplicate id", svc.ID)
		}
		seen[svc.ID] = struct{}{}
		if _, bad := problems["services"]; bad {
			break
		}
	}
	return problems
}

func (s CalendarSettings) Clone() CalendarSettings {
	out := s
	out.WeeklyHours = s.WeeklyHours.Clone()
	if s.Holidays != nil {
		out.Holidays = append(Holidays{}, s.Holidays...)
	}
	if s.Services != nil {
		out.Services = append(Services{}, s.Services...)
	}
	return out
}

func (s *CalendarSettings) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}
