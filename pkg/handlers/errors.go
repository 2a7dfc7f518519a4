package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

// Timeout messages shown to the browser.
const (
	browseTimeoutMessage   = "Database connection timed out. The SQL warehouse may be starting up. Please wait 30 seconds and try again."
	metadataTimeoutMessage = "Request timed out"
	generateTimeoutMessage = "LLM request timed out. Please try again."
	updateTimeoutMessage   = "Update request timed out"
)

// failure describes how a route reports errors.
type failure struct {
	timeoutMessage string
	// prefix is prepended to the sanitized error text of a 500.
	prefix string
}

var (
	browseFailure         = failure{browseTimeoutMessage, "Database error: "}
	metadataFailure       = failure{metadataTimeoutMessage, "Error: "}
	generateTableFailure  = failure{generateTimeoutMessage, "Error generating description: "}
	generateColumnFailure = failure{generateTimeoutMessage, "Error generating column descriptions: "}
	updateTableFailure    = failure{updateTimeoutMessage, "Error updating description: "}
	updateColumnFailure   = failure{updateTimeoutMessage, "Error updating column descriptions: "}
)

// isTimeout reports whether err came from a route deadline or the poller's cap.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || warehouse.IsTimeout(err)
}

// writeServiceError maps a service error to 504, 400, 404 or 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, f failure, err error) {
	switch {
	case isTimeout(err):
		logger.Warn("Request timed out", zap.String("error", logging.SanitizeError(err)))
		respondError(w, logger, http.StatusGatewayTimeout, "timeout", f.timeoutMessage)
	case errors.Is(err, apperrors.ErrInvalidIdentifier), errors.Is(err, apperrors.ErrInvalidInput):
		respondError(w, logger, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(w, logger, http.StatusNotFound, "not_found", err.Error())
	default:
		msg := logging.SanitizeError(err)
		logger.Error("Request failed", zap.String("error", msg))
		respondError(w, logger, http.StatusInternalServerError, "internal_error", f.prefix+msg)
	}
}
