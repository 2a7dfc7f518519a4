package main

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/handlers"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/llm"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/mcp"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/middleware"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/prompts"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
	"github.com/ekaya-inc/ekaya-lakehouse/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

const serviceName = "ekaya-lakehouse"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("warehouse_host", cfg.Warehouse.ServerHostname),
		zap.String("warehouse_mode", cfg.Warehouse.Mode),
		zap.Bool("oauth", cfg.Warehouse.UsesOAuth()),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("require_login", cfg.Auth.RequireLogin),
		zap.Bool("run_history", cfg.Database.IsConfigured()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warehouse
	tokens, err := warehouse.NewTokenSource(&cfg.Warehouse)
	if err != nil {
		logger.Fatal("Failed to configure warehouse credentials", zap.Error(err))
	}
	exec, closer, err := warehouse.NewFromConfig(&cfg.Warehouse, tokens, logger)
	if err != nil {
		logger.Fatal("Failed to create warehouse executor", zap.Error(err))
	}
	defer closer.Close()

	// LLM
	llmClient, err := llm.NewFromConfig(&cfg.LLM, cfg.LLMEndpoint(), tokens, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	templates, err := prompts.LoadTemplates(cfg.LLM.PromptsFile)
	if err != nil {
		logger.Fatal("Failed to load prompt templates", zap.Error(err))
	}

	// Optional run history. A nil repository disables recording.
	var runs services.RunRepository
	if cfg.Database.IsConfigured() {
		db, err := database.Open(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to open run history database", zap.Error(err))
		}
		defer db.Close()
		runs = repositories.NewRunRepository(db)
	}

	catalogService := services.NewCatalogService(exec, logger)
	enrichmentService := services.NewEnrichmentService(catalogService, llmClient, templates, runs, cfg.LLM.Temperature, logger)

	// Sessions
	sessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create session store", zap.Error(err))
	}
	secret := cfg.Auth.SessionSecret
	if secret == "" {
		// Only reachable when login is optional; sessions will not survive a restart.
		secret, err = auth.NewSessionID()
		if err != nil {
			logger.Fatal("Failed to generate session secret", zap.Error(err))
		}
		logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}
	cookies := auth.NewCookieManager(secret, cfg.Auth.SessionTTL, auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain))
	authMiddleware := auth.NewMiddleware(cookies, sessions, cfg.Auth.RequireLogin, logger)
	loginService := auth.NewLoginService(auth.WorkspaceConfig{Host: cfg.Warehouse.ServerHostname}, logger)

	auditor := audit.NewSecurityAuditor(logger)
	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(loginService, sessions, cookies, authMiddleware, cfg.Timeouts.Metadata, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, cfg.Timeouts, auditor, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewEnrichmentHandler(catalogService, enrichmentService, cfg.Timeouts, auditor, logger).RegisterRoutes(mux, authMiddleware)

	// MCP server for agent clients
	toolAudit := mcp.NewAuditLogger(prometheus.DefaultRegisterer, logger)
	mcpServer := mcp.NewServer(serviceName, cfg.Version, logger, server.WithHooks(toolAudit.Hooks()))
	tools.RegisterHealthTool(mcpServer.MCP(), cfg)
	tools.RegisterCatalogTools(mcpServer.MCP(), &tools.CatalogToolDeps{
		Catalog: catalogService,
		Timeout: cfg.Timeouts.Browse,
		Logger:  logger,
	})
	tools.RegisterEnrichmentTools(mcpServer.MCP(), &tools.EnrichmentToolDeps{
		Enrichment: enrichmentService,
		Timeout:    cfg.Timeouts.Generate,
		Logger:     logger,
	})
	mcpHandler := mcpServer.Handler()
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		mux.HandleFunc(method+" /mcp", authMiddleware.Optional(mcpHandler.ServeHTTP))
	}

	mux.Handle("GET /metrics", promhttp.Handler())

	// Frontend
	frontend, err := frontendFS(cfg.FrontendDir)
	if err != nil {
		logger.Fatal("Failed to load frontend", zap.Error(err))
	}
	handlers.NewSPAHandler(frontend, logger).RegisterRoutes(mux)

	httpMetrics := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
	handler := middleware.RequestLogger(logger)(
		middleware.CORS(cfg.CORSOrigins)(
			httpMetrics.Middleware(mux)))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting "+serviceName,
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "local" || env == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Named(serviceName)
}

// newSessionStore uses Redis when configured so sessions are shared across replicas.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.SessionStore, error) {
	client, err := database.NewRedisClient(ctx, &cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Info("Redis not configured, keeping sessions in memory")
		return auth.NewMemoryStore(cfg.Auth.SessionTTL), nil
	}
	var sealer *crypto.Sealer
	if cfg.Auth.SessionSecret != "" {
		if sealer, err = crypto.NewSealer(cfg.Auth.SessionSecret); err != nil {
			return nil, err
		}
	}
	return auth.NewRedisStore(client, cfg.Auth.SessionTTL, sealer), nil
}

func frontendFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return ui.DistFS()
}
