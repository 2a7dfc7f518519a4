package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies what went wrong with an LLM call.
type ErrorType string

const (
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeResponse  ErrorType = "response"
	ErrorTypeCanceled  ErrorType = "canceled"
	ErrorTypeCircuit   ErrorType = "circuit_open"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
	Endpoint   string    // Endpoint URL if known; only the host is printed
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if host := endpointHost(e.Endpoint); host != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", host))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext creates a new structured LLM error with additional context.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// ClassifyError categorizes an error and returns a structured Error.
// SDK error types are inspected first for an HTTP status; message patterns
// cover transport failures that never reached the server.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeCanceled, "request canceled", false, err)
	}

	if status := statusCode(err); status > 0 {
		return classifyStatus(status, err)
	}

	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication_error"):
		return NewError(ErrorTypeAuth, "authentication failed", false, err)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return NewError(ErrorTypeModel, "model not found", false, err)

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset"):
		return NewError(ErrorTypeEndpoint, "connection failed", true, err)

	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return NewError(ErrorTypeEndpoint, "request timeout", true, err)

	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "overloaded"):
		return NewError(ErrorTypeRateLimit, "rate limited", true, err)
	}

	return NewError(ErrorTypeUnknown, "llm error", false, err)
}

func classifyStatus(status int, err error) *Error {
	var e *Error
	switch {
	case status == 401 || status == 403:
		e = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case status == 404:
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "model") || strings.Contains(lower, "endpoint") {
			e = NewError(ErrorTypeModel, "model not found", false, err)
		} else {
			e = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
		}
	case status == 429:
		e = NewError(ErrorTypeRateLimit, "rate limited", true, err)
	case status >= 500:
		e = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		e = NewError(ErrorTypeUnknown, "request rejected", false, err)
	}
	e.StatusCode = status
	return e
}

// statusCode digs the HTTP status out of the SDK error types.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	var anthropicReqErr *anthropic.RequestError
	if errors.As(err, &anthropicReqErr) && anthropicReqErr.StatusCode > 0 {
		return anthropicReqErr.StatusCode
	}
	return 0
}

func endpointHost(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
