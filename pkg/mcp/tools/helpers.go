package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// requireTableRef reads the catalog, schema and table arguments.
// A nil result means the reference is usable; otherwise the result is the
// error to return to the caller.
func requireTableRef(req mcp.CallToolRequest) (sql.TableRef, *mcp.CallToolResult) {
	ref := sql.TableRef{
		Catalog: trimString(req.GetString("catalog", "")),
		Schema:  trimString(req.GetString("schema", "")),
		Table:   trimString(req.GetString("table", "")),
	}
	if ref.Catalog == "" || ref.Schema == "" || ref.Table == "" {
		return ref, NewErrorResult("invalid_parameters", "parameters 'catalog', 'schema' and 'table' are required")
	}
	if err := ref.Validate(); err != nil {
		return ref, NewErrorResult("invalid_parameters", err.Error())
	}
	return ref, nil
}

// withTimeout bounds a tool call when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// jsonResult marshals v as the tool's text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
