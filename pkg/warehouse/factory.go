package warehouse

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// NewTokenSource picks OAuth client credentials when configured, else the static token.
func NewTokenSource(cfg *config.WarehouseConfig) (TokenSource, error) {
	if cfg.UsesOAuth() {
		return NewOAuthTokenSource(OAuthConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Host:         cfg.ServerHostname,
		})
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("no warehouse credentials: set DATABRICKS_TOKEN or DATABRICKS_CLIENT_ID/DATABRICKS_CLIENT_SECRET")
	}
	return StaticToken(cfg.Token), nil
}

// NewFromConfig builds the executor selected by warehouse.mode.
// The returned closer releases driver connections and is a no-op for REST.
func NewFromConfig(cfg *config.WarehouseConfig, tokens TokenSource, logger *zap.Logger) (Executor, io.Closer, error) {
	switch cfg.Mode {
	case "driver":
		db, err := OpenDriver(DriverConfig{
			Host:         cfg.ServerHostname,
			HTTPPath:     cfg.HTTPPath,
			AccessToken:  cfg.Token,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		})
		if err != nil {
			return nil, nil, err
		}
		exec := NewDriverExecutor(db, logger)
		return exec, exec, nil

	default:
		client, err := NewClient(Config{
			Host:         cfg.ServerHostname,
			WarehouseID:  WarehouseIDFromPath(cfg.HTTPPath),
			Tokens:       tokens,
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
			WaitTimeout:  cfg.WaitTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
