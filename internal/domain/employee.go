package domain

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Employee struct {
	bun.BaseModel `bun:"table:employees"`

	ID          uuid.UUID   `bun:"id,pk,type:uuid"`
	FirstName   string      `bun:"first_name,notnull"`
	LastName    string      `bun:"last_name"`
	Color       string      `bun:"color"`
	WeeklyHours WeeklyHours `bun:"weekly_hours,type:text"`
	Holidays    Holidays    `bun:"holidays,type:text"`
	CreatedAt   time.Time   `bun:"created_at,notnull"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull"`
}

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate returns problems keyed by field name; an empty map means the employee is valid.
func (e Employee) Validate() map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(e.FirstName) == "" {
		problems["firstName"] = "first name is required"
	}
	if e.Color != "" && !colorPattern.MatchString(e.Color) {
		problems["color"] = "color must be a hex value like #3366ff"
	}
	if err := e.WeeklyHours.Validate(); err != nil {
		problems["weeklyHours"] = err.Error()
	}
	if err := e.Holidays.Validate(); err != nil {
		problems["holidays"] = err.Error()
	}
	return problems
}

func (e Employee) DisplayName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *Employee) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}
