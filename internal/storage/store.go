package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config selects the backend and how to reach it. For sqlite DSN is a file path.
type Config struct {
	Dialect string
	DSN     string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Store owns the connection pool shared by the repository and the
// aggregation engine.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured backend and verifies the connection.
// Migrations are not applied; call RunMigrations first.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	dsn, err := prepareDSN(dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}

	switch {
	case dialect.Name == SQLite.Name:
		// Single writer; readers share the file through WAL.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect.Name == SQLite.Name {
		for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("apply %q: %w", pragma, err)
			}
		}
	}

	return &Store{db: db, dialect: dialect}, nil
}

// prepareDSN normalizes the connection string for the driver.
func prepareDSN(d Dialect, dsn string) (string, error) {
	switch d.Name {
	case SQLite.Name:
		if dsn == "" {
			return "", fmt.Errorf("sqlite path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return "", fmt.Errorf("create db directory: %w", err)
		}
		return dsn, nil
	case MySQL.Name:
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	default:
		if dsn == "" {
			return "", fmt.Errorf("%s dsn is empty", d.Name)
		}
		return dsn, nil
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
