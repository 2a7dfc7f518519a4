package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/llm"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

// ErrorResponse is the body of a tool result with IsError set. Errors the
// model can act on are returned this way so the MCP client shows them to it.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// statementDetails identifies the warehouse statement behind a failure.
type statementDetails struct {
	StatementID string `json:"statement_id,omitempty"`
	State       string `json:"state,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
}

// llmDetails tells the model whether calling again may help.
type llmDetails struct {
	Type      string `json:"type"`
	Retryable bool   `json:"retryable"`
}

func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	body, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	})
	result := mcp.NewToolResultText(string(body))
	result.IsError = true
	return result
}

// NewServiceErrorResult maps an actionable service error to a tool result:
// bad identifiers, warehouse timeouts, failed statements and model serving
// errors. It returns nil for anything else, which the caller returns as a Go error.
func NewServiceErrorResult(err error) *mcp.CallToolResult {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidIdentifier), errors.Is(err, apperrors.ErrInvalidInput):
		return NewErrorResult("invalid_parameters", err.Error())
	case errors.Is(err, context.DeadlineExceeded), warehouse.IsTimeout(err):
		return NewErrorResult("timeout",
			"the SQL warehouse did not answer in time; it may be starting up, retry in about 30 seconds")
	case errors.Is(err, warehouse.ErrQueryExecutionFailed):
		// Missing tables and permission errors surface here.
		return NewErrorResultWithDetails("query_failed", logging.SanitizeError(err), statementDetailsOf(err))
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Type != llm.ErrorTypeAuth {
		return NewErrorResultWithDetails("llm_failed", logging.SanitizeError(err),
			llmDetails{Type: string(llmErr.Type), Retryable: llmErr.Retryable})
	}
	return nil
}

func statementDetailsOf(err error) *statementDetails {
	var stmtErr *warehouse.StatementError
	if !errors.As(err, &stmtErr) {
		return nil
	}
	d := &statementDetails{StatementID: stmtErr.StatementID, State: string(stmtErr.State)}
	if stmtErr.Service != nil {
		d.ErrorCode = string(stmtErr.Service.ErrorCode)
	}
	return d
}
