package settings

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/service"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type Service struct {
	repo   store.SettingsRepository
	logger *slog.Logger
}

func NewService(repo store.SettingsRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger.With("component", "settings")}
}

// Get returns the calendar settings, creating the defaults on first use.
func (s *Service) Get(ctx context.Context) (domain.CalendarSettings, error) {
	return s.repo.EnsureSettings(ctx)
}

// Replace stores in as the new settings. Nothing is merged with the previous value.
func (s *Service) Replace(ctx context.Context, in domain.CalendarSettings) (domain.CalendarSettings, error) {
	next := in.Clone()
	next.ID = domain.SettingsID
	next.Name = strings.TrimSpace(next.Name)
	if next.WeeklyHours == nil {
		next.WeeklyHours = domain.WeeklyHours{}
	}
	if next.Holidays == nil {
		next.Holidays = domain.Holidays{}
	}
	next.Holidays = next.Holidays.Sorted()
	if next.Services == nil {
		next.Services = domain.Services{}
	}
	for i := range next.Services {
		next.Services[i].ID = strings.TrimSpace(next.Services[i].ID)
		next.Services[i].Name = strings.TrimSpace(next.Services[i].Name)
	}

	if err := service.Invalid(next.Validate()); err != nil {
		return domain.CalendarSettings{}, err
	}

	saved, err := s.repo.UpsertSettings(ctx, next)
	if err != nil {
		return domain.CalendarSettings{}, err
	}
	s.logger.Info("settings replaced", slog.Int("services", len(saved.Services)), slog.Int("holidays", len(saved.Holidays)))
	return saved, nil
}
