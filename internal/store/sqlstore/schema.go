package sqlstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tthaschke-rgb/kalender/internal/domain"
)

// Migrate creates the schema if it does not exist yet. It is safe to run on every start.
func Migrate(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return migrate(ctx, tx)
	})
}

func migrate(ctx context.Context, tx bun.Tx) error {
	models := []any{
		(*domain.Employee)(nil),
		(*domain.Appointment)(nil),
		(*domain.CalendarSettings)(nil),
	}
	for _, m := range models {
		if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	_, err := tx.NewCreateIndex().
		Model((*domain.Appointment)(nil)).
		Index("appointments_employee_date_idx").
		Column("employee_id", "date").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create appointments index: %w", err)
	}

	if tx.Dialect().Name() == dialect.PG {
		return migratePostgres(ctx, tx)
	}
	return nil
}

// migratePostgres adds an exclusion constraint so overlapping appointments cannot be
// committed even by a writer that bypasses the booking lock.
func migratePostgres(ctx context.Context, tx bun.Tx) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist",
		`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'appointments_no_overlap' AND conrelid = 'appointments'::regclass) THEN
		ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap EXCLUDE USING gist (
			employee_id WITH =,
			date WITH =,
			int8range(start_minute, start_minute + duration_minutes) WITH &&
		);
	END IF;
END
$$`,
	}
	for _, stmt := range stmts {
		if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
			return fmt.Errorf("postgres migration: %w", err)
		}
	}
	return nil
}
