package store

import (
	"context"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

type SettingsRepository interface {
	// GetSettings returns ErrNotFound until the singleton has been created.
	GetSettings(ctx context.Context) (domain.CalendarSettings, error)
	// EnsureSettings creates the singleton with domain.DefaultSettings if absent and returns it.
	EnsureSettings(ctx context.Context) (domain.CalendarSettings, error)
	// UpsertSettings replaces the singleton wholesale.
	UpsertSettings(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error)
}
