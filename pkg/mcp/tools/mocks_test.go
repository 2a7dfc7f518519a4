package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// ============================================================================
// Mock services
// ============================================================================

type mockCatalogService struct {
	catalogs []string
	schemas  []string
	tables   []models.Table
	preview  *models.TablePreview
	columns  []models.Column
	comment  *string
	err      error

	lastCatalog string
	lastSchema  string
	lastLimit   int
}

var _ services.CatalogService = (*mockCatalogService)(nil)

func (m *mockCatalogService) ListCatalogs(ctx context.Context) ([]string, error) {
	return m.catalogs, m.err
}

func (m *mockCatalogService) ListSchemas(ctx context.Context, catalog string) ([]string, error) {
	m.lastCatalog = catalog
	return m.schemas, m.err
}

func (m *mockCatalogService) ListTables(ctx context.Context, catalog, schema string) ([]models.Table, error) {
	m.lastCatalog, m.lastSchema = catalog, schema
	return m.tables, m.err
}

func (m *mockCatalogService) PreviewTable(ctx context.Context, ref sql.TableRef, limit int) (*models.TablePreview, error) {
	m.lastLimit = limit
	return m.preview, m.err
}

func (m *mockCatalogService) DescribeColumns(ctx context.Context, ref sql.TableRef) ([]models.Column, error) {
	return m.columns, m.err
}

func (m *mockCatalogService) SampleRows(ctx context.Context, ref sql.TableRef) ([]map[string]any, error) {
	return nil, m.err
}

func (m *mockCatalogService) TableComment(ctx context.Context, ref sql.TableRef) *string {
	return m.comment
}

func (m *mockCatalogService) OtherTables(ctx context.Context, ref sql.TableRef) []models.DescribedTable {
	return []models.DescribedTable{}
}

func (m *mockCatalogService) UpdateTableComment(ctx context.Context, ref sql.TableRef, description string) error {
	panic("tools must never write table comments")
}

func (m *mockCatalogService) UpdateColumnComments(ctx context.Context, ref sql.TableRef, descriptions map[string]string) error {
	panic("tools must never write column comments")
}

type mockEnrichmentService struct {
	description  string
	err          error
	lastUsername string
	lastRef      sql.TableRef
}

var _ services.EnrichmentService = (*mockEnrichmentService)(nil)

func (m *mockEnrichmentService) TableMetadata(ctx context.Context, ref sql.TableRef) (*models.TableMetadata, error) {
	return nil, m.err
}

func (m *mockEnrichmentService) GenerateTableDescription(ctx context.Context, username string, ref sql.TableRef) (string, error) {
	m.lastUsername, m.lastRef = username, ref
	return m.description, m.err
}

func (m *mockEnrichmentService) GenerateColumnDescriptions(ctx context.Context, username string, ref sql.TableRef) ([]models.ColumnSuggestion, error) {
	return nil, m.err
}

func (m *mockEnrichmentService) ListRuns(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error) {
	return nil, m.err
}

// ============================================================================
// Helpers
// ============================================================================

type toolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool invokes a tool through the JSON-RPC layer.
func callTool(t *testing.T, ctx context.Context, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(ctx, msg))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

// text returns the single text content of a successful call.
func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected JSON-RPC error")
	require.Len(t, r.Result.Content, 1)
	return r.Result.Content[0].Text
}

func listToolNames(t *testing.T, s *server.MCPServer) map[string]bool {
	t.Helper()
	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Annotations struct {
					ReadOnlyHint *bool `json:"readOnlyHint"`
				} `json:"annotations"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	names := make(map[string]bool, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint
	}
	return names
}

func strPtr(s string) *string { return &s }
