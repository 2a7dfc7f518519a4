package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/retry"
)

const (
	applicationName = "ekaya-lakehouse"
	maxConnLifetime = time.Hour
	maxConnIdleTime = 30 * time.Minute
)

// DB is the run-history connection pool.
type DB struct {
	*pgxpool.Pool
}

// Open connects to the run-history database and applies pending migrations.
// The first connection is retried, since the database container often starts
// alongside the server.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	logger = logger.Named("database")

	poolConfig, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		pool, err := connect(ctx, poolConfig)
		if err != nil {
			logger.Warn("Database not ready", zap.String("host", cfg.Host), zap.Error(err))
		}
		return pool, err
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int32("max_connections", poolConfig.MaxConns))
	return &DB{Pool: pool}, nil
}

func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		pc.MaxConns = cfg.MaxConnections
	}
	pc.MaxConnLifetime = maxConnLifetime
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

func connect(ctx context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
