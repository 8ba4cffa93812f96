package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type EmployeeRepo struct {
	db *bun.DB
}

func NewEmployeeRepo(db *bun.DB) *EmployeeRepo {
	return &EmployeeRepo{db: db}
}

func (r *EmployeeRepo) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows := []domain.Employee{}
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("first_name ASC, last_name ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate("list employees", err)
	}
	return rows, nil
}

func (r *EmployeeRepo) GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	return getEmployee(ctx, r.db, id)
}

func (r *EmployeeRepo) CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	return createEmployee(ctx, r.db, e)
}

func (r *EmployeeRepo) UpdateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	m := e
	res, err := r.db.NewUpdate().
		Model(&m).
		WherePK().
		ExcludeColumn("id", "created_at").
		Exec(ctx)
	if err != nil {
		return domain.Employee{}, translate("update employee", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Employee{}, translate("update employee", err)
	}
	if affected == 0 {
		return domain.Employee{}, store.ErrNotFound
	}
	return m, nil
}

// DeleteEmployee leaves the employee's appointments in place.
func (r *EmployeeRepo) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, (*domain.Employee)(nil), "delete employee", id)
}

func (r *EmployeeRepo) ExistingEmployeeIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var found []uuid.UUID
	err := r.db.NewSelect().
		Model((*domain.Employee)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, translate("find employees", err)
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}
