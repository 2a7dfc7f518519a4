package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse is the body of write endpoints.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v before touching the response, so an encoding failure
// leaves the status unwritten. API responses carry catalog metadata and are
// never cached.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, err = w.Write(append(body, '\n'))
	return err
}

// ErrorResponse writes an ErrorBody with the given status.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ErrorBody{Error: errorCode, Message: message})
}

func respondError(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Int("status", statusCode), zap.Error(err))
	}
}

// respondJSON answers 200, or 500 when v cannot be encoded.
func respondJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		respondError(w, logger, http.StatusInternalServerError, "internal_error", "failed to encode response")
		return
	}
	if err := WriteJSON(w, http.StatusOK, json.RawMessage(body)); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
