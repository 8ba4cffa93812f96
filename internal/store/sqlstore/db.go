package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open connects to PostgreSQL (through pgx) or SQLite and verifies the connection.
func Open(driver, databaseURL string, pool PoolConfig) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverPostgres, "postgresql", "pgx":
		sqlDB, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, err
		}
		applyPool(sqlDB, pool)
		return finishOpen(sqlDB, func(db *sql.DB) *bun.DB { return bun.NewDB(db, pgdialect.New()) })
	case DriverSQLite, "sqlite3":
		memory := isMemorySQLite(databaseURL)
		if !memory {
			databaseURL = sqliteDSN(databaseURL)
		}
		sqlDB, err := sql.Open("sqlite", databaseURL)
		if err != nil {
			return nil, err
		}
		if memory {
			// Every connection to :memory: is a separate database.
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
			sqlDB.SetConnMaxLifetime(0)
			sqlDB.SetConnMaxIdleTime(0)
		} else {
			applyPool(sqlDB, pool)
		}
		return finishOpen(sqlDB, func(db *sql.DB) *bun.DB { return bun.NewDB(db, sqlitedialect.New()) })
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func applyPool(sqlDB *sql.DB, pool PoolConfig) {
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
}

func finishOpen(sqlDB *sql.DB, wrap func(*sql.DB) *bun.DB) (*bun.DB, error) {
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return wrap(sqlDB), nil
}

func isMemorySQLite(databaseURL string) bool {
	return strings.Contains(databaseURL, ":memory:") || strings.Contains(databaseURL, "mode=memory")
}

// sqliteDSN makes write transactions take the database lock when they begin and wait
// for a busy database instead of failing immediately.
func sqliteDSN(databaseURL string) string {
	var params []string
	if !strings.Contains(databaseURL, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(databaseURL, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return databaseURL
	}
	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	return databaseURL + sep + strings.Join(params, "&")
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
