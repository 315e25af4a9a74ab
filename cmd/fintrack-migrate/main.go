// Command fintrack-migrate applies pending schema migrations and exits.
package main

import (
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	logger.Info("Applying migrations", "backend", cfg.DataBackend, log.FieldOperation, log.OpMigrate)
	if err := storage.RunMigrations(storage.Config{Dialect: cfg.DataBackend, DSN: cfg.DSN()}); err != nil {
		logger.Error("Migration failed", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Migrations applied", "backend", cfg.DataBackend)
}
