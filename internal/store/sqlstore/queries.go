package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

// The helpers below take bun.IDB so the repositories and the booking transaction share them.

func getEmployee(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Employee, error) {
	var e domain.Employee
	err := db.NewSelect().
		Model(&e).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Employee{}, translate("get employee", err)
	}
	return e, nil
}

func createEmployee(ctx context.Context, db bun.IDB, e domain.Employee) (domain.Employee, error) {
	m := e
	if _, err := db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Employee{}, translate("create employee", err)
	}
	return m, nil
}

func getSettings(ctx context.Context, db bun.IDB) (domain.CalendarSettings, error) {
	var s domain.CalendarSettings
	err := db.NewSelect().
		Model(&s).
		Where("id = ?", domain.SettingsID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.CalendarSettings{}, translate("get settings", err)
	}
	return s, nil
}

func ensureSettings(ctx context.Context, db bun.IDB) (domain.CalendarSettings, error) {
	defaults := domain.DefaultSettings()
	_, err := db.NewInsert().
		Model(&defaults).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.CalendarSettings{}, translate("create default settings", err)
	}
	return getSettings(ctx, db)
}

func getAppointment(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, translate("get appointment", err)
	}
	return a, nil
}

func listByEmployeeAndDate(ctx context.Context, db bun.IDB, employeeID uuid.UUID, date domain.Date) ([]domain.Appointment, error) {
	rows := []domain.Appointment{}
	err := db.NewSelect().
		Model(&rows).
		Where("employee_id = ?", employeeID).
		Where("date = ?", date).
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate("list appointments", err)
	}
	return rows, nil
}

func createAppointment(ctx context.Context, db bun.IDB, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.EmployeeMissing = false
	if _, err := db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, translate("create appointment", err)
	}
	return m, nil
}

func updateAppointment(ctx context.Context, db bun.IDB, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.EmployeeMissing = false
	res, err := db.NewUpdate().
		Model(&m).
		WherePK().
		ExcludeColumn("id", "created_at").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, translate("update appointment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, translate("update appointment", err)
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func deleteByID(ctx context.Context, db bun.IDB, model any, op string, id uuid.UUID) error {
	res, err := db.NewDelete().
		Model(model).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
