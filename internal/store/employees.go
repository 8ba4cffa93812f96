package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

type EmployeeRepository interface {
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error)
	CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)
	UpdateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
	// ExistingEmployeeIDs returns the subset of ids that still exist.
	ExistingEmployeeIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
}
