// Package testhelpers starts the backing stores used by integration tests.
// Stores are reached through the same constructors the server uses, so the
// tests also cover connection retry and migrations.
package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
)

const (
	PostgresImage = "postgres:16-alpine"
	RedisImage    = "redis:7-alpine"
)

// TestDB is the run-history database shared by every test in the run.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	Config    config.DatabaseConfig
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB starts PostgreSQL once per test binary and applies the on-disk
// migrations. It skips in -short mode since Docker is required.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = startPostgres(context.Background())
	})
	if sharedTestDBErr != nil {
		t.Fatalf("Failed to set up test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	cfg := config.DatabaseConfig{
		User:           "ekaya",
		Password:       "test_password",
		Database:       "ekaya_lakehouse_test",
		SSLMode:        "disable",
		MaxConnections: 5,
		MigrationsPath: MigrationsPath(),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.User,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			// The init server also logs readiness before it restarts.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	if cfg.Host, cfg.Port, err = endpoint(ctx, container, "5432"); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, &cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}

	return &TestDB{
		Container: container,
		DB:        db,
		Config:    cfg,
		ConnStr:   cfg.ConnectionString(),
	}, nil
}

// StartRedis starts a Redis container for one test and returns a connected
// client. Both are cleaned up with the test.
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	var cfg config.RedisConfig
	if cfg.Host, cfg.Port, err = endpoint(ctx, container, "6379"); err != nil {
		t.Fatal(err)
	}

	client, err := database.NewRedisClient(ctx, &cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func endpoint(ctx context.Context, c testcontainers.Container, port string) (string, int, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get mapped port %s: %w", port, err)
	}
	return host, mapped.Int(), nil
}

// MigrationsPath returns the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Truncate empties the given tables between tests.
func (tdb *TestDB) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := tdb.DB.Exec(context.Background(), "TRUNCATE "+pgx.Identifier{table}.Sanitize()); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}
