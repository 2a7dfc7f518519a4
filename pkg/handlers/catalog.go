package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// --- Response Types ---

// CatalogsResponse lists the visible catalogs.
type CatalogsResponse struct {
	Catalogs []string `json:"catalogs"`
}

// SchemasResponse lists the schemas of one catalog.
type SchemasResponse struct {
	Schemas []string `json:"schemas"`
}

// TablesResponse lists the tables of one schema.
type TablesResponse struct {
	Tables []models.Table `json:"tables"`
	Count  int            `json:"count"`
}

// CatalogHandler serves the browse routes: catalogs, schemas, tables and previews.
type CatalogHandler struct {
	catalog  services.CatalogService
	timeouts config.TimeoutConfig
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog services.CatalogService, timeouts config.TimeoutConfig, auditor *audit.SecurityAuditor, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		timeouts: timeouts,
		auditor:  auditor,
		logger:   logger,
	}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/catalogs", authMiddleware.Optional(h.ListCatalogs))
	mux.HandleFunc("GET /api/schemas", authMiddleware.Optional(h.ListSchemas))
	mux.HandleFunc("GET /api/tables", authMiddleware.Optional(h.ListTables))
	mux.HandleFunc("GET /api/table-preview", authMiddleware.Optional(h.PreviewTable))
}

// ListCatalogs handles GET /api/catalogs
func (h *CatalogHandler) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Browse)
	defer cancel()

	catalogs, err := h.catalog.ListCatalogs(ctx)
	if err != nil {
		writeServiceError(w, h.logger, browseFailure, err)
		return
	}

	h.logger.Debug("Listed catalogs", zap.Int("count", len(catalogs)))
	respondJSON(w, h.logger, CatalogsResponse{Catalogs: catalogs})
}

// ListSchemas handles GET /api/schemas?catalog=
func (h *CatalogHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	catalog := r.URL.Query().Get("catalog")
	if catalog == "" {
		respondError(w, h.logger, http.StatusBadRequest, "missing_parameter", "catalog is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Browse)
	defer cancel()

	schemas, err := h.catalog.ListSchemas(ctx, catalog)
	if err != nil {
		writeServiceError(w, h.logger, browseFailure, err)
		return
	}
	respondJSON(w, h.logger, SchemasResponse{Schemas: schemas})
}

// ListTables handles GET /api/tables?catalog=&schema=
// Missing parameters fall back to the service defaults.
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Browse)
	defer cancel()

	tables, err := h.catalog.ListTables(ctx, q.Get("catalog"), q.Get("schema"))
	if err != nil {
		writeServiceError(w, h.logger, browseFailure, err)
		return
	}
	respondJSON(w, h.logger, TablesResponse{Tables: tables, Count: len(tables)})
}

// PreviewTable handles GET /api/table-preview?catalog=&schema=&table=&limit=
func (h *CatalogHandler) PreviewTable(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}
	limit, ok := ParseLimit(w, r, services.DefaultPreviewLimit, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Browse)
	defer cancel()

	preview, err := h.catalog.PreviewTable(ctx, ref, limit)
	if err != nil {
		writeServiceError(w, h.logger, browseFailure, err)
		return
	}
	respondJSON(w, h.logger, preview)
}
