package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// ============================================================================
// Mock catalog service
// ============================================================================

// mockCatalogService answers with canned data unless a Func field is set.
type mockCatalogService struct {
	catalogs []string
	schemas  []string
	tables   []models.Table
	preview  *models.TablePreview
	columns  []models.Column
	comment  *string
	err      error

	updateTableFunc   func(ctx context.Context, ref sql.TableRef, description string) error
	updateColumnsFunc func(ctx context.Context, ref sql.TableRef, descriptions map[string]string) error

	lastLimit int
	lastRef   sql.TableRef
}

var _ services.CatalogService = (*mockCatalogService)(nil)

func (m *mockCatalogService) ListCatalogs(ctx context.Context) ([]string, error) {
	return m.catalogs, m.err
}

func (m *mockCatalogService) ListSchemas(ctx context.Context, catalog string) ([]string, error) {
	return m.schemas, m.err
}

func (m *mockCatalogService) ListTables(ctx context.Context, catalog, schema string) ([]models.Table, error) {
	return m.tables, m.err
}

func (m *mockCatalogService) PreviewTable(ctx context.Context, ref sql.TableRef, limit int) (*models.TablePreview, error) {
	m.lastRef, m.lastLimit = ref, limit
	return m.preview, m.err
}

func (m *mockCatalogService) DescribeColumns(ctx context.Context, ref sql.TableRef) ([]models.Column, error) {
	m.lastRef = ref
	return m.columns, m.err
}

func (m *mockCatalogService) SampleRows(ctx context.Context, ref sql.TableRef) ([]map[string]any, error) {
	return nil, m.err
}

func (m *mockCatalogService) TableComment(ctx context.Context, ref sql.TableRef) *string {
	m.lastRef = ref
	return m.comment
}

func (m *mockCatalogService) OtherTables(ctx context.Context, ref sql.TableRef) []models.DescribedTable {
	return []models.DescribedTable{}
}

func (m *mockCatalogService) UpdateTableComment(ctx context.Context, ref sql.TableRef, description string) error {
	if m.updateTableFunc != nil {
		return m.updateTableFunc(ctx, ref, description)
	}
	return m.err
}

func (m *mockCatalogService) UpdateColumnComments(ctx context.Context, ref sql.TableRef, descriptions map[string]string) error {
	if m.updateColumnsFunc != nil {
		return m.updateColumnsFunc(ctx, ref, descriptions)
	}
	return m.err
}

// ============================================================================
// Mock enrichment service
// ============================================================================

type mockEnrichmentService struct {
	description string
	suggestions []models.ColumnSuggestion
	runs        []*models.EnrichmentRun
	err         error

	lastUsername string
	lastLimit    int
}

var _ services.EnrichmentService = (*mockEnrichmentService)(nil)

func (m *mockEnrichmentService) TableMetadata(ctx context.Context, ref sql.TableRef) (*models.TableMetadata, error) {
	return nil, m.err
}

func (m *mockEnrichmentService) GenerateTableDescription(ctx context.Context, username string, ref sql.TableRef) (string, error) {
	m.lastUsername = username
	return m.description, m.err
}

func (m *mockEnrichmentService) GenerateColumnDescriptions(ctx context.Context, username string, ref sql.TableRef) ([]models.ColumnSuggestion, error) {
	m.lastUsername = username
	return m.suggestions, m.err
}

func (m *mockEnrichmentService) ListRuns(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error) {
	m.lastUsername, m.lastLimit = username, limit
	return m.runs, m.err
}

// ============================================================================
// Mock login service
// ============================================================================

type mockLoginService struct {
	user *models.User
	err  error
}

func (m *mockLoginService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

// ============================================================================
// Helpers
// ============================================================================

var testTimeouts = config.TimeoutConfig{
	Browse:   time.Second,
	Metadata: time.Second,
	Generate: time.Second,
}

var testUser = models.User{Email: "ada@example.com", Name: "Ada", Username: "ada@example.com"}

type authStack struct {
	cookies    *auth.CookieManager
	sessions   *auth.MemoryStore
	middleware *auth.Middleware
}

func newAuthStack(required bool) *authStack {
	cookies := auth.NewCookieManager("test-secret", time.Hour, auth.CookieSettings{})
	sessions := auth.NewMemoryStore(time.Hour)
	return &authStack{
		cookies:    cookies,
		sessions:   sessions,
		middleware: auth.NewMiddleware(cookies, sessions, required, zap.NewNop()),
	}
}

// sessionCookie signs in testUser and returns the cookie to send.
func (a *authStack) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	session, err := a.sessions.Create(context.Background(), testUser)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, a.cookies.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), session.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func strPtr(s string) *string { return &s }
