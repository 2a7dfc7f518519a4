// Package warehouse executes SQL statements against a lakehouse SQL warehouse.
//
// The REST Client submits a statement to the statement execution API, polls
// until it leaves PENDING/RUNNING, then fetches every result chunk in manifest
// order and materializes rows that support positional and by-name access.
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
)

const (
	// DefaultPollInterval is the pause between status polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPolls caps the poll loop.
	DefaultMaxPolls = 60
	// DefaultWaitTimeout is the server-side wait budget. 50s is the maximum the API accepts.
	DefaultWaitTimeout = 50 * time.Second
	// DefaultHTTPTimeout bounds each individual HTTP call.
	DefaultHTTPTimeout = 120 * time.Second

	executorREST = "rest"
)

// Executor runs one SQL statement and returns its full result.
type Executor interface {
	Execute(ctx context.Context, statement string) (*Result, error)
}

// Config holds configuration for the REST statement client.
type Config struct {
	// Host is the workspace hostname; the base URL is derived from it.
	Host string
	// BaseURL overrides https://{Host}/api/2.0/sql/statements.
	BaseURL     string
	WarehouseID string
	Tokens      TokenSource
	HTTPClient  *http.Client

	PollInterval time.Duration
	MaxPolls     int
	WaitTimeout  time.Duration
}

// Client is the REST statement poller.
type Client struct {
	baseURL      string
	warehouseID  string
	tokens       TokenSource
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	waitTimeout  time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *zap.Logger
}

var _ Executor = (*Client)(nil)

// BaseURL returns the statement API root for a workspace host.
func BaseURL(host string) string {
	return "https://" + host + "/api/2.0/sql/statements"
}

// WarehouseIDFromPath returns the final segment of a warehouse HTTP path,
// e.g. "/sql/1.0/warehouses/abc123" -> "abc123".
func WarehouseIDFromPath(httpPath string) string {
	trimmed := strings.TrimRight(httpPath, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// NewClient creates a REST statement client. Zero poll settings take the defaults.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Host == "" {
			return nil, fmt.Errorf("host is required")
		}
		baseURL = BaseURL(cfg.Host)
	}
	if cfg.WarehouseID == "" {
		return nil, fmt.Errorf("warehouse id is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		warehouseID:  cfg.WarehouseID,
		tokens:       cfg.Tokens,
		httpClient:   cfg.HTTPClient,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		waitTimeout:  cfg.WaitTimeout,
		sleep:        sleepContext,
		logger:       logger.Named("warehouse"),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxPolls <= 0 {
		c.maxPolls = DefaultMaxPolls
	}
	if c.waitTimeout <= 0 {
		c.waitTimeout = DefaultWaitTimeout
	}
	return c, nil
}

// Execute submits the statement, waits for it to finish and returns every row.
// Failures are fatal to the call and no partial result is returned.
func (c *Client) Execute(ctx context.Context, statement string) (*Result, error) {
	start := time.Now()
	result, err := c.execute(ctx, statement)
	observeStatement(executorREST, err, time.Since(start))

	if err != nil {
		c.logger.Error("Statement failed",
			zap.String("sql", logging.SanitizeQuery(statement)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	c.logger.Debug("Statement completed",
		zap.String("sql", logging.SanitizeQuery(statement)),
		zap.Int("columns", len(result.Columns)),
		zap.Int("rows", result.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (c *Client) execute(ctx context.Context, statement string) (*Result, error) {
	resp, err := c.submit(ctx, statement)
	if err != nil {
		return nil, err
	}

	polls := 0
	for inProgress(resp.Status.State) {
		if polls >= c.maxPolls {
			statementPolls.Observe(float64(polls))
			return nil, &StatementError{
				Kind:        ErrTimeoutExceeded,
				StatementID: resp.StatementID,
				State:       resp.Status.State,
				Body:        fmt.Sprintf("still %s after %d polls", resp.Status.State, polls),
			}
		}

		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		polls++

		c.logger.Debug("Polling statement",
			zap.String("statement_id", resp.StatementID),
			zap.Int("poll", polls),
			zap.Int("max_polls", c.maxPolls))

		resp, err = c.status(ctx, resp.StatementID)
		if err != nil {
			return nil, err
		}
	}
	statementPolls.Observe(float64(polls))

	switch resp.Status.State {
	case StateSucceeded:
		return c.materialize(ctx, resp)
	default:
		return nil, &StatementError{
			Kind:        ErrQueryExecutionFailed,
			StatementID: resp.StatementID,
			State:       resp.Status.State,
			Body:        string(resp.Status.Error),
			Service:     resp.Status.serviceError(),
		}
	}
}

func (c *Client) submit(ctx context.Context, statement string) (*statementResponse, error) {
	body, err := json.Marshal(StatementRequest{
		Statement:     statement,
		WarehouseID:   c.warehouseID,
		WaitTimeout:   formatWaitTimeout(c.waitTimeout),
		OnWaitTimeout: dbsql.ExecuteStatementRequestOnWaitTimeoutContinue,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statement request: %w", err)
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, &StatementError{Kind: ErrSubmissionFailed, Cause: err}
	}
	if !isSuccess(status) {
		return nil, &StatementError{Kind: ErrSubmissionFailed, StatusCode: status, Body: string(raw)}
	}

	var resp statementResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &StatementError{Kind: ErrSubmissionFailed, StatusCode: status, Body: string(raw), Cause: err}
	}
	return &resp, nil
}

func (c *Client) status(ctx context.Context, statementID string) (*statementResponse, error) {
	status, raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+statementID, nil)
	if err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, Cause: err}
	}
	if !isSuccess(status) {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, StatusCode: status, Body: string(raw)}
	}

	var resp statementResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, Body: string(raw), Cause: err}
	}
	if resp.StatementID == "" {
		resp.StatementID = statementID
	}
	return &resp, nil
}

// materialize fetches every chunk sequentially in manifest order.
func (c *Client) materialize(ctx context.Context, resp *statementResponse) (*Result, error) {
	columns := columnNames(resp.Manifest)
	if resp.Manifest == nil || len(resp.Manifest.Chunks) == 0 {
		return NewResult(columns, nil)
	}

	var rows [][]any
	for _, chunk := range resp.Manifest.Chunks {
		data, err := c.chunk(ctx, resp.StatementID, chunk.ChunkIndex)
		if err != nil {
			return nil, err
		}
		rows = append(rows, data...)
	}

	result, err := NewResult(columns, rows)
	if err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: resp.StatementID, Cause: err}
	}
	return result, nil
}

func (c *Client) chunk(ctx context.Context, statementID string, index int) ([][]any, error) {
	url := c.baseURL + "/" + statementID + "/result/chunks/" + strconv.Itoa(index)
	status, raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, Cause: err}
	}
	if !isSuccess(status) {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, StatusCode: status, Body: string(raw)}
	}

	var resp chunkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &StatementError{Kind: ErrQueryExecutionFailed, StatementID: statementID, Body: string(raw), Cause: err}
	}
	return resp.DataArray, nil
}

// do sends one authenticated request and returns the status and raw body.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func formatWaitTimeout(d time.Duration) string {
	return strconv.Itoa(int(d/time.Second)) + "s"
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
