package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// ParseTableRef reads the catalog, schema and table query parameters.
// All three are required and must be valid identifiers; rejected identifiers
// are reported to the security auditor. Returns false after writing a 400 response.
func ParseTableRef(w http.ResponseWriter, r *http.Request, auditor *audit.SecurityAuditor, logger *zap.Logger) (sql.TableRef, bool) {
	q := r.URL.Query()
	ref := sql.TableRef{
		Catalog: q.Get("catalog"),
		Schema:  q.Get("schema"),
		Table:   q.Get("table"),
	}

	if ref.Catalog == "" || ref.Schema == "" || ref.Table == "" {
		respondError(w, logger, http.StatusBadRequest, "missing_parameter", "catalog, schema and table are required")
		return sql.TableRef{}, false
	}
	if err := ref.Validate(); err != nil {
		auditor.LogRejectedTableRef(r.Context(), ref, err, r.RemoteAddr)
		respondError(w, logger, http.StatusBadRequest, "invalid_identifier", err.Error())
		return sql.TableRef{}, false
	}
	return ref, true
}

// ParseLimit reads the optional limit query parameter.
// Returns def when absent and false after writing a 400 when it is not an integer.
func ParseLimit(w http.ResponseWriter, r *http.Request, def int, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return 0, false
	}
	return limit, true
}
