package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration for the configured backend.
func RunMigrations(cfg Config) error {
	dialect, err := DialectFor(cfg.Dialect)
	if err != nil {
		return err
	}

	dsn, err := prepareDSN(dialect, cfg.DSN)
	if err != nil {
		return err
	}

	// Create a separate connection for migrations to avoid interfering with the main pool
	migrateDB, err := sql.Open(dialect.MigrationDriverName, dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migrationDriver(dialect, migrateDB)
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect.Name, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+dialect.Name)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, dialect.Name, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func migrationDriver(d Dialect, db *sql.DB) (database.Driver, error) {
	switch d.Name {
	case Postgres.Name:
		return migratepg.WithInstance(db, &migratepg.Config{})
	case MySQL.Name:
		return migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		return sqlite.WithInstance(db, &sqlite.Config{})
	}
}
