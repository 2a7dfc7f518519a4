package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// PingResponse describes the running process for operators.
type PingResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	Hostname      string `json:"hostname,omitempty"`
	GoVersion     string `json:"go_version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	WarehouseHost string `json:"warehouse_host"`
	WarehouseMode string `json:"warehouse_mode"`
	LLMModel      string `json:"llm_model"`
}

// APIHealthResponse is the body of GET /api/health, which the browser app polls.
type APIHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HealthHandler struct {
	cfg     *config.Config
	started time.Time
	logger  *zap.Logger
}

func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, started: time.Now(), logger: logger}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	mux.HandleFunc("GET /api/health", h.APIHealth)
}

// Health is the load balancer probe. It never touches the warehouse.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, APIHealthResponse{Status: "healthy", Message: "App is running"})
}

// Ping reports version, uptime and the configured warehouse and model.
// A failed hostname lookup leaves the field empty.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	respondJSON(w, h.logger, PingResponse{
		Status:        "ok",
		Service:       "ekaya-lakehouse",
		Version:       h.cfg.Version,
		Environment:   h.cfg.Env,
		Hostname:      hostname,
		GoVersion:     runtime.Version(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		WarehouseHost: h.cfg.Warehouse.ServerHostname,
		WarehouseMode: h.cfg.Warehouse.Mode,
		LLMModel:      h.cfg.LLM.Model,
	})
}
