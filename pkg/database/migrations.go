package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/migrations"
)

const migrationsTable = "lakehouse_schema_migrations"

// RunMigrations brings the run-history schema up to date. An empty
// migrationsPath uses the migrations embedded in the binary.
// A database left dirty by an interrupted migration is reported, not repaired.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, sourceName, err := newMigrator(driver, migrationsPath)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return fmt.Errorf("schema version %d is dirty; fix it by hand and force the version in %s", from, migrationsTable)
	}

	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("Run history schema up to date", zap.Uint("version", from), zap.String("source", sourceName))
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, _, _ := m.Version()
	logger.Info("Migrated run history schema",
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.String("source", sourceName))
	return nil
}

func newMigrator(driver migratedb.Driver, migrationsPath string) (*migrate.Migrate, string, error) {
	if migrationsPath != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load migrations from %s: %w", migrationsPath, err)
		}
		return m, migrationsPath, nil
	}

	src, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return nil, "", fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, "embedded", nil
}
