package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type Config struct {
	Size int
	TTL  time.Duration
}

// SettingsRepository caches the settings singleton. Writes through this repository
// invalidate it; writes from other processes become visible after TTL.
type SettingsRepository struct {
	next   store.SettingsRepository
	cache  *ttlCache[string, domain.CalendarSettings]
	logger *slog.Logger
}

func NewSettingsRepository(next store.SettingsRepository, cfg Config, logger *slog.Logger) (*SettingsRepository, error) {
	c, err := newTTLCache[string, domain.CalendarSettings](1, cfg.TTL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsRepository{next: next, cache: c, logger: logger.With("component", "settings_cache")}, nil
}

func (r *SettingsRepository) GetSettings(ctx context.Context) (domain.CalendarSettings, error) {
	if s, ok := r.cache.get(domain.SettingsID); ok {
		return s.Clone(), nil
	}
	s, err := r.next.GetSettings(ctx)
	if err != nil {
		return domain.CalendarSettings{}, err
	}
	r.cache.add(domain.SettingsID, s.Clone())
	return s, nil
}

func (r *SettingsRepository) EnsureSettings(ctx context.Context) (domain.CalendarSettings, error) {
	if s, ok := r.cache.get(domain.SettingsID); ok {
		r.logger.Debug("cache hit", slog.String("key", domain.SettingsID))
		return s.Clone(), nil
	}
	s, err := r.next.EnsureSettings(ctx)
	if err != nil {
		return domain.CalendarSettings{}, err
	}
	r.cache.add(domain.SettingsID, s.Clone())
	return s, nil
}

// UpsertSettings evicts before and after the write: a read racing the write can
// repopulate the entry with the old row.
func (r *SettingsRepository) UpsertSettings(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error) {
	r.cache.remove(domain.SettingsID)
	defer r.cache.remove(domain.SettingsID)
	return r.next.UpsertSettings(ctx, s)
}

// EmployeeRepository caches single employees by id. Lists are always read from next.
type EmployeeRepository struct {
	next   store.EmployeeRepository
	cache  *ttlCache[uuid.UUID, domain.Employee]
	logger *slog.Logger
}

func NewEmployeeRepository(next store.EmployeeRepository, cfg Config, logger *slog.Logger) (*EmployeeRepository, error) {
	c, err := newTTLCache[uuid.UUID, domain.Employee](cfg.Size, cfg.TTL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeRepository{next: next, cache: c, logger: logger.With("component", "employee_cache")}, nil
}

func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return r.next.ListEmployees(ctx)
}

func (r *EmployeeRepository) GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	if e, ok := r.cache.get(id); ok {
		r.logger.Debug("cache hit", slog.String("employee_id", id.String()))
		return cloneEmployee(e), nil
	}
	e, err := r.next.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	r.cache.add(id, cloneEmployee(e))
	return e, nil
}

func (r *EmployeeRepository) CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	return r.next.CreateEmployee(ctx, e)
}

func (r *EmployeeRepository) UpdateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	r.cache.remove(e.ID)
	defer r.cache.remove(e.ID)
	return r.next.UpdateEmployee(ctx, e)
}

func (r *EmployeeRepository) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	r.cache.remove(id)
	defer r.cache.remove(id)
	return r.next.DeleteEmployee(ctx, id)
}

// ExistingEmployeeIDs is not cached: orphan flags must reflect deletions by other processes.
func (r *EmployeeRepository) ExistingEmployeeIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return r.next.ExistingEmployeeIDs(ctx, ids)
}

func cloneEmployee(e domain.Employee) domain.Employee {
	out := e
	out.WeeklyHours = e.WeeklyHours.Clone()
	if e.Holidays != nil {
		out.Holidays = append(domain.Holidays{}, e.Holidays...)
	}
	return out
}
