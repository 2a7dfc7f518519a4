package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

var ordersRef = sql.TableRef{Catalog: "main", Schema: "sales", Table: "orders"}

func TestCatalogService_ListCatalogs(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SHOW CATALOGS", []string{"catalog"}, []any{"main"}, []any{"dev_uc"}, []any{""})
	svc := NewCatalogService(exec, zap.NewNop())

	catalogs, err := svc.ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "dev_uc"}, catalogs)
}

func TestCatalogService_ListCatalogs_AlternateColumn(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SHOW CATALOGS", []string{"catalogName"}, []any{"hive_metastore"})
	svc := NewCatalogService(exec, zap.NewNop())

	catalogs, err := svc.ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hive_metastore"}, catalogs)
}

func TestCatalogService_ListSchemas(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SHOW SCHEMAS IN `main`", []string{"databaseName"}, []any{"sales"}, []any{"default"})
	svc := NewCatalogService(exec, zap.NewNop())

	schemas, err := svc.ListSchemas(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "default"}, schemas)

	_, err = svc.ListSchemas(context.Background(), "main; DROP")
	assert.ErrorIs(t, err, apperrors.ErrInvalidIdentifier)
	assert.Len(t, exec.executed(), 1, "invalid identifiers never reach the warehouse")
}

func TestCatalogService_ListTables_Defaults(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SHOW TABLES IN `dev_uc`.`default`",
		[]string{"database", "tableName", "isTemporary"},
		[]any{"default", "orders", false},
		[]any{"default", "customers", false})
	svc := NewCatalogService(exec, zap.NewNop())

	tables, err := svc.ListTables(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, "dev_uc", tables[0].Catalog)
	assert.Equal(t, "default", tables[0].Schema)
	assert.Equal(t, "dev_uc.default.orders", tables[0].FullName)
}

func TestCatalogService_ListTables_WarehouseError(t *testing.T) {
	exec := newFakeExecutor()
	exec.fail("SHOW TABLES", &warehouse.StatementError{Kind: warehouse.ErrTimeoutExceeded})
	svc := NewCatalogService(exec, zap.NewNop())

	_, err := svc.ListTables(context.Background(), "main", "sales")
	assert.ErrorIs(t, err, warehouse.ErrTimeoutExceeded)
}

func TestCatalogService_PreviewTable(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SELECT * FROM `main`.`sales`.`orders` LIMIT 2",
		[]string{"id", "note"},
		[]any{"1", nil},
		[]any{"2", "rush"})
	svc := NewCatalogService(exec, zap.NewNop())

	preview, err := svc.PreviewTable(context.Background(), ordersRef, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note"}, preview.Columns)
	assert.Equal(t, 2, preview.RowCount)
	assert.Nil(t, preview.Rows[0]["note"])
	assert.Equal(t, "rush", preview.Rows[1]["note"])
}

func TestCatalogService_PreviewTable_LimitBounds(t *testing.T) {
	svc := NewCatalogService(newFakeExecutor(), zap.NewNop())

	for _, limit := range []int{0, -1, 1001} {
		_, err := svc.PreviewTable(context.Background(), ordersRef, limit)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "limit %d", limit)
	}
}

func TestCatalogService_DescribeColumns(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "DESCRIBE TABLE `main`.`sales`.`orders`",
		[]string{"col_name", "data_type", "comment"},
		[]any{"order_id", "bigint", "Primary key"},
		[]any{"region", "string", nil},
		[]any{"order_date", "date", ""},
		[]any{"", "", ""},
		[]any{"# Partition Information", "", ""},
		[]any{"# col_name", "data_type", "comment"},
		[]any{"order_date", "date", ""})
	svc := NewCatalogService(exec, zap.NewNop())

	columns, err := svc.DescribeColumns(context.Background(), ordersRef)
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "order_id", columns[0].Name)
	assert.Equal(t, "bigint", columns[0].Type)
	require.NotNil(t, columns[0].Description)
	assert.Equal(t, "Primary key", *columns[0].Description)

	assert.Nil(t, columns[1].Description)

	require.NotNil(t, columns[2].Description)
	assert.Equal(t, "", *columns[2].Description)
}

func TestCatalogService_TableComment(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SELECT comment FROM `main`.information_schema.tables WHERE table_schema = 'sales' AND table_name = 'orders'",
		[]string{"comment"}, []any{"All customer orders"})
	svc := NewCatalogService(exec, zap.NewNop())

	comment := svc.TableComment(context.Background(), ordersRef)
	require.NotNil(t, comment)
	assert.Equal(t, "All customer orders", *comment)
}

func TestCatalogService_TableComment_ErrorsYieldNil(t *testing.T) {
	exec := newFakeExecutor()
	exec.fail("SELECT comment", errors.New("permission denied"))
	svc := NewCatalogService(exec, zap.NewNop())

	assert.Nil(t, svc.TableComment(context.Background(), ordersRef))

	exec = newFakeExecutor()
	exec.on(t, "SELECT comment", []string{"comment"})
	svc = NewCatalogService(exec, zap.NewNop())
	assert.Nil(t, svc.TableComment(context.Background(), ordersRef), "no rows")
}

func TestCatalogService_OtherTables(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "SELECT table_name, comment FROM `main`.information_schema.tables WHERE table_schema = 'sales' AND table_name != 'orders' LIMIT 10",
		[]string{"table_name", "comment"},
		[]any{"customers", "Customer master"},
		[]any{"returns", nil})
	svc := NewCatalogService(exec, zap.NewNop())

	others := svc.OtherTables(context.Background(), ordersRef)
	require.Len(t, others, 2)
	assert.Equal(t, "customers", others[0].Name)
	assert.Nil(t, others[1].Description)

	failing := newFakeExecutor()
	failing.fail("SELECT table_name", errors.New("boom"))
	others = NewCatalogService(failing, zap.NewNop()).OtherTables(context.Background(), ordersRef)
	assert.NotNil(t, others)
	assert.Empty(t, others)
}

func TestCatalogService_UpdateTableComment_EscapesQuotes(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "COMMENT ON TABLE", nil)
	svc := NewCatalogService(exec, zap.NewNop())

	err := svc.UpdateTableComment(context.Background(), ordersRef, "Orders placed by O'Brien's team")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"COMMENT ON TABLE `main`.`sales`.`orders` IS 'Orders placed by O''Brien''s team'"},
		exec.executed())
}

func TestCatalogService_UpdateColumnComments_SortedAndAborting(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "ALTER TABLE", nil)
	exec.fail("ALTER TABLE `main`.`sales`.`orders` CHANGE COLUMN `region`", errors.New("column is locked"))
	svc := NewCatalogService(exec, zap.NewNop())

	err := svc.UpdateColumnComments(context.Background(), ordersRef, map[string]string{
		"status":   "Order status",
		"amount":   "Total in USD",
		"region":   "Sales region",
		"order_id": "Primary key",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")

	assert.Equal(t, []string{
		"ALTER TABLE `main`.`sales`.`orders` CHANGE COLUMN `amount` COMMENT 'Total in USD'",
		"ALTER TABLE `main`.`sales`.`orders` CHANGE COLUMN `order_id` COMMENT 'Primary key'",
		"ALTER TABLE `main`.`sales`.`orders` CHANGE COLUMN `region` COMMENT 'Sales region'",
	}, exec.executed(), "status is never attempted after region fails")
}

func TestCatalogService_UpdateColumnComments_ValidatesBeforeWriting(t *testing.T) {
	exec := newFakeExecutor()
	exec.on(t, "ALTER TABLE", nil)
	svc := NewCatalogService(exec, zap.NewNop())

	err := svc.UpdateColumnComments(context.Background(), ordersRef, map[string]string{
		"amount":      "ok",
		"bad` column": "nope",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidIdentifier)
	assert.Empty(t, exec.executed())
}
