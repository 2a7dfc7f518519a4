// Package tools provides the MCP tools for browsing Unity Catalog metadata.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// defaultToolPreviewLimit keeps previews small enough for a model's context.
const defaultToolPreviewLimit = 20

// CatalogToolDeps contains dependencies for the catalog browsing tools.
type CatalogToolDeps struct {
	Catalog services.CatalogService
	// Timeout bounds each tool call; zero means no extra deadline.
	Timeout time.Duration
	Logger  *zap.Logger
}

// RegisterCatalogTools registers the read-only catalog browsing tools.
func RegisterCatalogTools(s *server.MCPServer, deps *CatalogToolDeps) {
	registerListCatalogsTool(s, deps)
	registerListSchemasTool(s, deps)
	registerListTablesTool(s, deps)
	registerPreviewTableTool(s, deps)
	registerDescribeTableTool(s, deps)
}

// readOnly annotates a tool that never changes the warehouse.
func readOnly() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}
}

func tableArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("catalog", mcp.Required(), mcp.Description("Catalog name (e.g., 'main')")),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Schema name (e.g., 'sales')")),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name (e.g., 'orders')")),
	}
}

func registerListCatalogsTool(s *server.MCPServer, deps *CatalogToolDeps) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the Unity Catalog catalogs visible to the server's warehouse identity."),
	}, readOnly()...)

	s.AddTool(mcp.NewTool("list_catalogs", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		catalogs, err := deps.Catalog.ListCatalogs(ctx)
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("list_catalogs failed", zap.Error(err))
			return nil, err
		}
		return jsonResult(map[string]any{"catalogs": catalogs})
	})
}

func registerListSchemasTool(s *server.MCPServer, deps *CatalogToolDeps) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the schemas in a catalog."),
		mcp.WithString("catalog", mcp.Required(), mcp.Description("Catalog name (e.g., 'main')")),
	}, readOnly()...)

	s.AddTool(mcp.NewTool("list_schemas", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalog := trimString(req.GetString("catalog", ""))
		if catalog == "" {
			return NewErrorResult("invalid_parameters", "parameter 'catalog' cannot be empty"), nil
		}

		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		schemas, err := deps.Catalog.ListSchemas(ctx, catalog)
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("list_schemas failed", zap.String("catalog", catalog), zap.Error(err))
			return nil, err
		}
		return jsonResult(map[string]any{"catalog": catalog, "schemas": schemas})
	})
}

func registerListTablesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf(
			"List the tables in a schema. Catalog defaults to '%s' and schema to '%s'.",
			services.DefaultCatalog, services.DefaultSchema)),
		mcp.WithString("catalog", mcp.Description("Optional - Catalog name")),
		mcp.WithString("schema", mcp.Description("Optional - Schema name")),
	}, readOnly()...)

	s.AddTool(mcp.NewTool("list_tables", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		tables, err := deps.Catalog.ListTables(ctx,
			trimString(req.GetString("catalog", "")),
			trimString(req.GetString("schema", "")))
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("list_tables failed", zap.Error(err))
			return nil, err
		}
		return jsonResult(map[string]any{"tables": tables, "count": len(tables)})
	})
}

func registerPreviewTableTool(s *server.MCPServer, deps *CatalogToolDeps) {
	opts := append(tableArgs(),
		mcp.WithDescription("Return the first rows of a table. NULL values are preserved."),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Optional - Rows to return, 1 to %d (default %d)", services.MaxPreviewLimit, defaultToolPreviewLimit)),
			mcp.Min(1),
			mcp.Max(services.MaxPreviewLimit)),
	)
	opts = append(opts, readOnly()...)

	s.AddTool(mcp.NewTool("preview_table", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, errResult := requireTableRef(req)
		if errResult != nil {
			return errResult, nil
		}

		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		preview, err := deps.Catalog.PreviewTable(ctx, ref, req.GetInt("limit", defaultToolPreviewLimit))
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("preview_table failed", zap.String("table", ref.FullName()), zap.Error(err))
			return nil, err
		}
		return jsonResult(preview)
	})
}

type describeTableResult struct {
	Table              string                `json:"table"`
	CurrentDescription *string               `json:"current_description"`
	IsMissing          bool                  `json:"is_missing"`
	Columns            []models.ColumnStatus `json:"columns"`
}

func registerDescribeTableTool(s *server.MCPServer, deps *CatalogToolDeps) {
	opts := append(tableArgs(),
		mcp.WithDescription("Describe a table: its current comment and every column's type and comment, "+
			"with is_missing flags for descriptions that need writing."),
	)
	opts = append(opts, readOnly()...)

	s.AddTool(mcp.NewTool("describe_table", opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, errResult := requireTableRef(req)
		if errResult != nil {
			return errResult, nil
		}

		ctx, cancel := withTimeout(ctx, deps.Timeout)
		defer cancel()

		columns, err := deps.Catalog.DescribeColumns(ctx, ref)
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				return errResult, nil
			}
			deps.Logger.Error("describe_table failed", zap.String("table", ref.FullName()), zap.Error(err))
			return nil, err
		}

		comment := deps.Catalog.TableComment(ctx, ref)
		result := describeTableResult{
			Table:              ref.FullName(),
			CurrentDescription: comment,
			IsMissing:          services.IsMissingDescription(comment),
			Columns:            make([]models.ColumnStatus, 0, len(columns)),
		}
		for _, c := range columns {
			result.Columns = append(result.Columns, models.ColumnStatus{
				Column:    c,
				IsMissing: services.IsMissingDescription(c.Description),
			})
		}
		return jsonResult(result)
	})
}
