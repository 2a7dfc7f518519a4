package warehouse

import (
	"encoding/json"

	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
)

// State is the lifecycle state reported by the statement execution API.
type State = dbsql.StatementState

const (
	StatePending   = dbsql.StatementStatePending
	StateRunning   = dbsql.StatementStateRunning
	StateSucceeded = dbsql.StatementStateSucceeded
	StateFailed    = dbsql.StatementStateFailed
	StateCanceled  = dbsql.StatementStateCanceled
	StateClosed    = dbsql.StatementStateClosed
)

// inProgress reports whether the poll loop should keep waiting on this state.
func inProgress(s State) bool {
	return s == StatePending || s == StateRunning
}

// StatementRequest is the body of a statement submission.
type StatementRequest struct {
	Statement     string                                   `json:"statement"`
	WarehouseID   string                                   `json:"warehouse_id"`
	WaitTimeout   string                                   `json:"wait_timeout"`
	OnWaitTimeout dbsql.ExecuteStatementRequestOnWaitTimeout `json:"on_wait_timeout"`
}

// statementResponse is returned by both submit and status calls.
type statementResponse struct {
	StatementID string                `json:"statement_id"`
	Status      statementStatus       `json:"status"`
	Manifest    *dbsql.ResultManifest `json:"manifest,omitempty"`
}

type statementStatus struct {
	State State `json:"state"`
	// Error is kept raw so the server payload reaches the caller unchanged.
	Error json.RawMessage `json:"error,omitempty"`
}

// serviceError decodes the error payload when it has the documented shape.
func (s statementStatus) serviceError() *dbsql.ServiceError {
	if len(s.Error) == 0 {
		return nil
	}
	var se dbsql.ServiceError
	if err := json.Unmarshal(s.Error, &se); err != nil {
		return nil
	}
	return &se
}

// chunkResponse is one page of result rows. Values stay untyped so JSON nulls survive.
type chunkResponse struct {
	ChunkIndex int     `json:"chunk_index"`
	DataArray  [][]any `json:"data_array"`
}

// columnNames extracts the ordered column names from a manifest schema.
func columnNames(m *dbsql.ResultManifest) []string {
	if m == nil || m.Schema == nil {
		return []string{}
	}
	names := make([]string, len(m.Schema.Columns))
	for i, col := range m.Schema.Columns {
		names[i] = col.Name
	}
	return names
}
