package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbsqldriver "github.com/databricks/databricks-sql-go"
	"github.com/databricks/databricks-sql-go/auth/oauth/m2m"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
)

const executorDriver = "driver"

// DriverConfig configures a database/sql connection through the warehouse driver.
type DriverConfig struct {
	Host         string
	HTTPPath     string
	Port         int
	AccessToken  string
	ClientID     string
	ClientSecret string
	QueryTimeout time.Duration
}

// OpenDriver opens a *sql.DB backed by the Thrift warehouse driver.
// OAuth client credentials take precedence over an access token.
func OpenDriver(cfg DriverConfig) (*sql.DB, error) {
	if cfg.Host == "" || cfg.HTTPPath == "" {
		return nil, fmt.Errorf("host and http path are required")
	}

	port := cfg.Port
	if port == 0 {
		port = 443
	}

	opts := []dbsqldriver.ConnOption{
		dbsqldriver.WithServerHostname(cfg.Host),
		dbsqldriver.WithHTTPPath(cfg.HTTPPath),
		dbsqldriver.WithPort(port),
	}

	switch {
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		opts = append(opts, dbsqldriver.WithAuthenticator(m2m.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.Host)))
	case cfg.AccessToken != "":
		opts = append(opts, dbsqldriver.WithAccessToken(cfg.AccessToken))
	default:
		return nil, fmt.Errorf("either client credentials or an access token is required")
	}

	if cfg.QueryTimeout > 0 {
		opts = append(opts, dbsqldriver.WithTimeout(cfg.QueryTimeout))
	}

	connector, err := dbsqldriver.NewConnector(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// DriverExecutor runs statements through database/sql.
// The driver handles polling and result paging itself.
type DriverExecutor struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Executor = (*DriverExecutor)(nil)

// NewDriverExecutor wraps an open *sql.DB.
func NewDriverExecutor(db *sql.DB, logger *zap.Logger) *DriverExecutor {
	return &DriverExecutor{db: db, logger: logger.Named("warehouse-driver")}
}

// Execute implements Executor.
func (d *DriverExecutor) Execute(ctx context.Context, statement string) (*Result, error) {
	start := time.Now()
	result, err := d.execute(ctx, statement)
	observeStatement(executorDriver, err, time.Since(start))

	if err != nil {
		d.logger.Error("Statement failed",
			zap.String("sql", logging.SanitizeQuery(statement)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	d.logger.Debug("Statement completed",
		zap.String("sql", logging.SanitizeQuery(statement)),
		zap.Int("rows", result.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (d *DriverExecutor) execute(ctx context.Context, statement string) (*Result, error) {
	rows, err := d.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, Cause: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, Cause: err}
	}

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &StatementError{Kind: ErrQueryExecutionFailed, Cause: err}
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, Cause: err}
	}

	return NewResult(columns, raw)
}

// Close closes the underlying database handle.
func (d *DriverExecutor) Close() error {
	return d.db.Close()
}
