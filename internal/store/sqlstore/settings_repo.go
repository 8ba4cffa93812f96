package sqlstore

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

type SettingsRepo struct {
	db *bun.DB
}

func NewSettingsRepo(db *bun.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) GetSettings(ctx context.Context) (domain.CalendarSettings, error) {
	return getSettings(ctx, r.db)
}

func (r *SettingsRepo) EnsureSettings(ctx context.Context) (domain.CalendarSettings, error) {
	return ensureSettings(ctx, r.db)
}

func (r *SettingsRepo) UpsertSettings(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error) {
	m := s
	m.ID = domain.SettingsID
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("weekly_hours = EXCLUDED.weekly_hours").
		Set("holidays = EXCLUDED.holidays").
		Set("services = EXCLUDED.services").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.CalendarSettings{}, translate("upsert settings", err)
	}
	return m, nil
}
