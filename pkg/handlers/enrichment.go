package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// --- Request Types ---

// UpdateDescriptionRequest is the body of POST /api/update-description.
type UpdateDescriptionRequest struct {
	Description *string `json:"description"`
}

// UpdateColumnDescriptionsRequest is the body of POST /api/update-column-descriptions.
type UpdateColumnDescriptionsRequest struct {
	ColumnDescriptions map[string]string `json:"column_descriptions"`
}

// --- Response Types ---

// TableDescriptionResponse carries the current table comment.
type TableDescriptionResponse struct {
	CurrentDescription *string `json:"current_description"`
	IsMissing          bool    `json:"is_missing"`
}

// ColumnMetadataResponse lists columns and whether each needs a description.
type ColumnMetadataResponse struct {
	Columns []models.ColumnStatus `json:"columns"`
}

// GeneratedDescriptionResponse carries a drafted table description.
type GeneratedDescriptionResponse struct {
	GeneratedDescription string `json:"generated_description"`
}

// GeneratedColumnsResponse carries drafted column descriptions.
type GeneratedColumnsResponse struct {
	Columns []models.ColumnSuggestion `json:"columns"`
}

// RunsResponse lists the caller's recent generations.
type RunsResponse struct {
	Runs []*models.EnrichmentRun `json:"runs"`
}

// EnrichmentHandler serves table and column description routes: reading the
// current comments, drafting new ones with the LLM and writing them back.
type EnrichmentHandler struct {
	catalog    services.CatalogService
	enrichment services.EnrichmentService
	timeouts   config.TimeoutConfig
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
}

// NewEnrichmentHandler creates an enrichment handler.
func NewEnrichmentHandler(
	catalog services.CatalogService,
	enrichment services.EnrichmentService,
	timeouts config.TimeoutConfig,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *EnrichmentHandler {
	return &EnrichmentHandler{
		catalog:    catalog,
		enrichment: enrichment,
		timeouts:   timeouts,
		auditor:    auditor,
		logger:     logger,
	}
}

// RegisterRoutes registers the enrichment handler's routes on the given mux.
func (h *EnrichmentHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	// Current metadata
	mux.HandleFunc("GET /api/table-description", authMiddleware.Optional(h.GetTableDescription))
	mux.HandleFunc("GET /api/column-metadata", authMiddleware.Optional(h.GetColumnMetadata))

	// LLM drafting
	mux.HandleFunc("POST /api/generate-description", authMiddleware.Optional(h.GenerateDescription))
	mux.HandleFunc("POST /api/generate-column-descriptions", authMiddleware.Optional(h.GenerateColumnDescriptions))

	// Write-back
	mux.HandleFunc("POST /api/update-description", authMiddleware.Optional(h.UpdateDescription))
	mux.HandleFunc("POST /api/update-column-descriptions", authMiddleware.Optional(h.UpdateColumnDescriptions))

	mux.HandleFunc("GET /api/runs", authMiddleware.Optional(h.ListRuns))
}

// GetTableDescription handles GET /api/table-description?catalog=&schema=&table=
func (h *EnrichmentHandler) GetTableDescription(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Metadata)
	defer cancel()

	comment := h.catalog.TableComment(ctx, ref)
	if err := ctx.Err(); err != nil {
		writeServiceError(w, h.logger, metadataFailure, err)
		return
	}

	respondJSON(w, h.logger, TableDescriptionResponse{
		CurrentDescription: comment,
		IsMissing:          services.IsMissingDescription(comment),
	})
}

// GetColumnMetadata handles GET /api/column-metadata?catalog=&schema=&table=
func (h *EnrichmentHandler) GetColumnMetadata(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Metadata)
	defer cancel()

	columns, err := h.catalog.DescribeColumns(ctx, ref)
	if err != nil {
		writeServiceError(w, h.logger, metadataFailure, err)
		return
	}

	statuses := make([]models.ColumnStatus, 0, len(columns))
	for _, c := range columns {
		statuses = append(statuses, models.ColumnStatus{
			Column:    c,
			IsMissing: services.IsMissingDescription(c.Description),
		})
	}
	respondJSON(w, h.logger, ColumnMetadataResponse{Columns: statuses})
}

// GenerateDescription handles POST /api/generate-description?catalog=&schema=&table=
// The draft is returned for review; nothing is written to the warehouse.
func (h *EnrichmentHandler) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Generate)
	defer cancel()

	h.logger.Info("Generating table description", zap.String("table", ref.FullName()))
	description, err := h.enrichment.GenerateTableDescription(ctx, auth.UsernameFromContext(ctx), ref)
	if err != nil {
		writeServiceError(w, h.logger, generateTableFailure, err)
		return
	}
	respondJSON(w, h.logger, GeneratedDescriptionResponse{GeneratedDescription: description})
}

// GenerateColumnDescriptions handles POST /api/generate-column-descriptions?catalog=&schema=&table=
func (h *EnrichmentHandler) GenerateColumnDescriptions(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Generate)
	defer cancel()

	h.logger.Info("Generating column descriptions", zap.String("table", ref.FullName()))
	columns, err := h.enrichment.GenerateColumnDescriptions(ctx, auth.UsernameFromContext(ctx), ref)
	if err != nil {
		writeServiceError(w, h.logger, generateColumnFailure, err)
		return
	}
	respondJSON(w, h.logger, GeneratedColumnsResponse{Columns: columns})
}

// UpdateDescription handles POST /api/update-description?catalog=&schema=&table=
func (h *EnrichmentHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	var req UpdateDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must contain a description")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Metadata)
	defer cancel()

	if err := h.catalog.UpdateTableComment(ctx, ref, *req.Description); err != nil {
		writeServiceError(w, h.logger, updateTableFailure, err)
		return
	}
	h.auditor.LogCommentWrite(ctx, ref, nil, r.RemoteAddr)
	respondJSON(w, h.logger, SuccessResponse{Success: true, Message: "Table description updated successfully"})
}

// UpdateColumnDescriptions handles POST /api/update-column-descriptions?catalog=&schema=&table=
func (h *EnrichmentHandler) UpdateColumnDescriptions(w http.ResponseWriter, r *http.Request) {
	ref, ok := ParseTableRef(w, r, h.auditor, h.logger)
	if !ok {
		return
	}

	var req UpdateColumnDescriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ColumnDescriptions == nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must contain column_descriptions")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Metadata)
	defer cancel()

	if err := h.catalog.UpdateColumnComments(ctx, ref, req.ColumnDescriptions); err != nil {
		writeServiceError(w, h.logger, updateColumnFailure, err)
		return
	}
	h.auditor.LogCommentWrite(ctx, ref, sortedKeys(req.ColumnDescriptions), r.RemoteAddr)
	respondJSON(w, h.logger, SuccessResponse{Success: true, Message: "Column descriptions updated successfully"})
}

// ListRuns handles GET /api/runs?limit=
func (h *EnrichmentHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, services.DefaultRunsLimit, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeouts.Metadata)
	defer cancel()

	runs, err := h.enrichment.ListRuns(ctx, auth.UsernameFromContext(ctx), limit)
	if err != nil {
		writeServiceError(w, h.logger, metadataFailure, err)
		return
	}
	if runs == nil {
		runs = []*models.EnrichmentRun{}
	}
	respondJSON(w, h.logger, RunsResponse{Runs: runs})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
