package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

func newHealthMux() *http.ServeMux {
	cfg := &config.Config{
		Version:   "test-version",
		Env:       "test",
		Warehouse: config.WarehouseConfig{Mode: "rest", ServerHostname: "dbc-1234.cloud.databricks.com"},
		LLM:       config.LLMConfig{Model: "databricks-dbrx-instruct"},
	}
	mux := http.NewServeMux()
	NewHealthHandler(cfg, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestHealthHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_APIHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"App is running"}`, rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "ekaya-lakehouse", resp.Service)
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, "rest", resp.WarehouseMode)
	assert.Equal(t, "dbc-1234.cloud.databricks.com", resp.WarehouseHost)
	assert.Equal(t, "databricks-dbrx-instruct", resp.LLMModel)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, int64(0))
	assert.NotEmpty(t, resp.GoVersion)
}
