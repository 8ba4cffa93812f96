package employees

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/service"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type Service struct {
	repo   store.EmployeeRepository
	logger *slog.Logger
}

func NewService(repo store.EmployeeRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger.With("component", "employees")}
}

type CreateInput struct {
	FirstName   string
	LastName    string
	Color       string
	WeeklyHours domain.WeeklyHours
	Holidays    domain.Holidays
}

// UpdateInput changes only the fields that are set. WeeklyHours and Holidays replace
// the stored values as a whole.
type UpdateInput struct {
	FirstName   *string
	LastName    *string
	Color       *string
	WeeklyHours *domain.WeeklyHours
	Holidays    *domain.Holidays
}

func (s *Service) List(ctx context.Context) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Employee, error) {
	e := domain.Employee{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Color:       strings.TrimSpace(in.Color),
		WeeklyHours: in.WeeklyHours,
		Holidays:    in.Holidays,
	}
	normalize(&e)
	if err := service.Invalid(e.Validate()); err != nil {
		return domain.Employee{}, err
	}

	created, err := s.repo.CreateEmployee(ctx, e)
	if err != nil {
		return domain.Employee{}, err
	}
	s.logger.Info("employee created", slog.String("employee_id", created.ID.String()))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (domain.Employee, error) {
	e, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}

	if in.FirstName != nil {
		e.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		e.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Color != nil {
		e.Color = strings.TrimSpace(*in.Color)
	}
	if in.WeeklyHours != nil {
		e.WeeklyHours = *in.WeeklyHours
	}
	if in.Holidays != nil {
		e.Holidays = *in.Holidays
	}
	normalize(&e)
	if err := service.Invalid(e.Validate()); err != nil {
		return domain.Employee{}, err
	}

	updated, err := s.repo.UpdateEmployee(ctx, e)
	if err != nil {
		return domain.Employee{}, err
	}
	s.logger.Info("employee updated", slog.String("employee_id", id.String()))
	return updated, nil
}

// Delete removes the employee only. Existing appointments stay and are reported as
// orphaned when listed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.logger.Info("employee deleted", slog.String("employee_id", id.String()))
	return nil
}

func normalize(e *domain.Employee) {
	if e.WeeklyHours == nil {
		e.WeeklyHours = domain.WeeklyHours{}
	}
	if e.Holidays == nil {
		e.Holidays = domain.Holidays{}
	}
	e.Holidays = e.Holidays.Sorted()
}
