package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

func newCatalogMux(svc *mockCatalogService, stack *authStack) *http.ServeMux {
	mux := http.NewServeMux()
	NewCatalogHandler(svc, testTimeouts, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop()).RegisterRoutes(mux, stack.middleware)
	return mux
}

func TestCatalogHandler_ListCatalogs(t *testing.T) {
	mux := newCatalogMux(&mockCatalogService{catalogs: []string{"main", "dev_uc"}}, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalogs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CatalogsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"main", "dev_uc"}, resp.Catalogs)
}

func TestCatalogHandler_ListCatalogs_TimeoutIs504(t *testing.T) {
	for name, err := range map[string]error{
		"route deadline": fmt.Errorf("failed to list catalogs: %w", context.DeadlineExceeded),
		"poll cap":       &warehouse.StatementError{Kind: warehouse.ErrTimeoutExceeded},
	} {
		t.Run(name, func(t *testing.T) {
			mux := newCatalogMux(&mockCatalogService{err: err}, newAuthStack(false))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalogs", nil))

			assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "timeout", resp["error"])
			assert.Equal(t, browseTimeoutMessage, resp["message"])
		})
	}
}

func TestCatalogHandler_ListCatalogs_DatabaseError(t *testing.T) {
	mux := newCatalogMux(&mockCatalogService{err: errors.New("warehouse unreachable")}, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalogs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Database error: warehouse unreachable", resp["message"])
}

func TestCatalogHandler_RequiresSessionWhenLoginRequired(t *testing.T) {
	stack := newAuthStack(true)
	mux := newCatalogMux(&mockCatalogService{catalogs: []string{"main"}}, stack)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalogs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/catalogs", nil)
	req.AddCookie(stack.sessionCookie(t))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogHandler_ListSchemas_RequiresCatalog(t *testing.T) {
	mux := newCatalogMux(&mockCatalogService{}, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schemas", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandler_ListSchemas_InvalidIdentifierIs400(t *testing.T) {
	svc := &mockCatalogService{err: fmt.Errorf("%w: catalog %q", apperrors.ErrInvalidIdentifier, "main;")}
	mux := newCatalogMux(svc, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schemas?catalog=main%3B", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandler_ListTables(t *testing.T) {
	svc := &mockCatalogService{tables: []models.Table{
		{Name: "orders", Catalog: "main", Schema: "sales", FullName: "main.sales.orders"},
		{Name: "returns", Catalog: "main", Schema: "sales", FullName: "main.sales.returns"},
	}}
	mux := newCatalogMux(svc, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables?catalog=main&schema=sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TablesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "main.sales.returns", resp.Tables[1].FullName)
}

func TestCatalogHandler_PreviewTable(t *testing.T) {
	svc := &mockCatalogService{preview: &models.TablePreview{
		Columns:  []string{"id", "note"},
		Rows:     []map[string]any{{"id": "1", "note": nil}},
		RowCount: 1,
	}}
	mux := newCatalogMux(svc, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/table-preview?catalog=main&schema=sales&table=orders&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.lastLimit)
	assert.Equal(t, "main.sales.orders", svc.lastRef.FullName())
	assert.JSONEq(t, `{"columns":["id","note"],"rows":[{"id":"1","note":null}],"row_count":1}`, rec.Body.String())
}

func TestCatalogHandler_PreviewTable_DefaultLimit(t *testing.T) {
	svc := &mockCatalogService{preview: &models.TablePreview{}}
	mux := newCatalogMux(svc, newAuthStack(false))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/table-preview?catalog=main&schema=sales&table=orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, svc.lastLimit)
}

func TestCatalogHandler_PreviewTable_BadInput(t *testing.T) {
	svc := &mockCatalogService{err: fmt.Errorf("%w: limit must be between 1 and 1000", apperrors.ErrInvalidInput)}
	mux := newCatalogMux(svc, newAuthStack(false))

	for _, target := range []string{
		"/api/table-preview?catalog=main&schema=sales",
		"/api/table-preview?catalog=main&schema=sales&table=orders&limit=ten",
		"/api/table-preview?catalog=main&schema=sales&table=orders&limit=5000",
		"/api/table-preview?catalog=main&schema=sales&table=ord%60ers",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
