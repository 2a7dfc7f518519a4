package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// EnrichmentToolDeps contains dependencies for the description drafting tool.
type EnrichmentToolDeps struct {
	Enrichment services.EnrichmentService
	Timeout    time.Duration
	Logger     *zap.Logger
}

// RegisterEnrichmentTools registers suggest_table_description.
// Drafts are returned only; nothing is written back to the warehouse.
func RegisterEnrichmentTools(s *server.MCPServer, deps *EnrichmentToolDeps) {
	opts := append(tableArgs(),
		mcp.WithDescription("Draft a business description for a table from its columns, sample rows and sibling tables. "+
			"The draft is returned for review and is not saved as the table comment."),
	)
	opts = append(opts, readOnly()...)

	s.AddTool(mcp.NewTool("suggest_table_description", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, errResult := requireTableRef(req)
		if errResult != nil {
			return errResult, nil
		}

		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		description, err := deps.Enrichment.GenerateTableDescription(ctx, auth.UsernameFromContext(ctx), ref)
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("suggest_table_description failed", zap.String("table", ref.FullName()), zap.Error(err))
			return nil, err
		}
		return jsonResult(map[string]string{
			"table":                 ref.FullName(),
			"suggested_description": description,
		})
	})
}
