package sqlstore

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.db, id)
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	rows := []domain.Appointment{}
	q := r.db.NewSelect().Model(&rows)
	if filter.EmployeeID != uuid.Nil {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}
	if !filter.Date.IsZero() {
		q = q.Where("date = ?", filter.Date)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date <= ?", filter.To)
	}
	err := q.OrderExpr("date ASC, start_minute ASC, id ASC").Scan(ctx)
	if err != nil {
		return nil, translate("list appointments", err)
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, date domain.Date) ([]domain.Appointment, error) {
	return listByEmployeeAndDate(ctx, r.db, employeeID, date)
}

func (r *AppointmentRepo) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, (*domain.Appointment)(nil), "delete appointment", id)
}

func (r *AppointmentRepo) InBookingTransaction(ctx context.Context, keys []store.BookingKey, fn func(ctx context.Context, tx store.BookingTx) error) error {
	var fnErr error
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockBookingKeys(ctx, tx, keys); err != nil {
			return translate("lock booking keys", err)
		}
		fnErr = fn(ctx, bookingTx{tx: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return translate("booking transaction", err)
}

// lockBookingKeys takes transaction-scoped advisory locks so that separate processes
// serialize on the same employee and date. Keys are locked in sorted order.
// SQLite needs no extra lock: write transactions begin immediately and hold the database lock.
func lockBookingKeys(ctx context.Context, tx bun.Tx, keys []store.BookingKey) error {
	if tx.Dialect().Name() != dialect.PG || len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		name := "kalender:" + k.String()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", name).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t bookingTx) GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	return getEmployee(ctx, t.tx, id)
}

func (t bookingTx) GetSettings(ctx context.Context) (domain.CalendarSettings, error) {
	s, err := getSettings(ctx, t.tx)
	if errors.Is(err, store.ErrNotFound) {
		return ensureSettings(ctx, t.tx)
	}
	return s, err
}

func (t bookingTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, t.tx, id)
}

func (t bookingTx) ListByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, date domain.Date) ([]domain.Appointment, error) {
	return listByEmployeeAndDate(ctx, t.tx, employeeID, date)
}

func (t bookingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	return createAppointment(ctx, t.tx, appt)
}

func (t bookingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	return updateAppointment(ctx, t.tx, appt)
}
