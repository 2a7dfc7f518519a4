package warehouse

import (
	"errors"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
)

var (
	// ErrSubmissionFailed means the warehouse rejected the statement submission.
	ErrSubmissionFailed = errors.New("statement submission failed")
	// ErrQueryExecutionFailed means the statement failed or its results could not be read.
	ErrQueryExecutionFailed = errors.New("query execution failed")
	// ErrTimeoutExceeded means the statement was still running after the last allowed poll.
	ErrTimeoutExceeded = errors.New("statement timeout exceeded")
)

// StatementError carries the raw server response for a failed statement.
// errors.Is matches it against the sentinel in Kind.
type StatementError struct {
	Kind        error
	StatementID string
	StatusCode  int                 // HTTP status if the failure came from a response
	State       State               // Last known statement state
	Body        string              // Raw response body or error payload
	Service     *dbsql.ServiceError // Decoded error payload, if any
	Cause       error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	var parts []string
	parts = append(parts, e.Kind.Error())

	if e.StatementID != "" {
		parts = append(parts, fmt.Sprintf("statement=%s", e.StatementID))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.State != "" {
		parts = append(parts, fmt.Sprintf("state=%s", e.State))
	}

	switch {
	case e.Service != nil && e.Service.Message != "":
		parts = append(parts, fmt.Sprintf("%s: %s", e.Service.ErrorCode, e.Service.Message))
	case e.Body != "":
		parts = append(parts, e.Body)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Is reports whether target is this error's kind.
func (e *StatementError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *StatementError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a poll-cap timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeoutExceeded)
}
