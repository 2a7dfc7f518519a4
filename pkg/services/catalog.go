package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

const (
	// DefaultCatalog and DefaultSchema apply when a table listing omits them.
	DefaultCatalog = "dev_uc"
	DefaultSchema  = "default"

	DefaultPreviewLimit = 100
	MaxPreviewLimit     = 1000

	sampleRowLimit     = 20
	otherTablesLimit   = 10
	informationSchemaT = "information_schema.tables"
)

// CatalogService reads warehouse metadata and writes table and column comments.
// Every statement goes through a warehouse.Executor; identifiers are validated
// before they are spliced into SQL.
type CatalogService interface {
	ListCatalogs(ctx context.Context) ([]string, error)
	ListSchemas(ctx context.Context, catalog string) ([]string, error)
	ListTables(ctx context.Context, catalog, schema string) ([]models.Table, error)
	PreviewTable(ctx context.Context, ref sql.TableRef, limit int) (*models.TablePreview, error)

	// DescribeColumns returns the table's columns, skipping DESCRIBE section headers.
	DescribeColumns(ctx context.Context, ref sql.TableRef) ([]models.Column, error)
	SampleRows(ctx context.Context, ref sql.TableRef) ([]map[string]any, error)

	// TableComment returns the current table comment, or nil if it is unset or cannot be read.
	TableComment(ctx context.Context, ref sql.TableRef) *string
	// OtherTables returns up to 10 sibling tables with their comments. Failures yield an empty list.
	OtherTables(ctx context.Context, ref sql.TableRef) []models.DescribedTable

	UpdateTableComment(ctx context.Context, ref sql.TableRef, description string) error
	// UpdateColumnComments issues one ALTER per column in sorted column order.
	// The first failure aborts the remaining updates.
	UpdateColumnComments(ctx context.Context, ref sql.TableRef, descriptions map[string]string) error
}

type catalogService struct {
	exec   warehouse.Executor
	logger *zap.Logger
}

// NewCatalogService creates a catalog service over the given executor.
func NewCatalogService(exec warehouse.Executor, logger *zap.Logger) CatalogService {
	return &catalogService{
		exec:   exec,
		logger: logger.Named("catalog"),
	}
}

func (s *catalogService) ListCatalogs(ctx context.Context) ([]string, error) {
	result, err := s.exec.Execute(ctx, "SHOW CATALOGS")
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	return names(result, "catalog", "catalogName", "name"), nil
}

func (s *catalogService) ListSchemas(ctx context.Context, catalog string) ([]string, error) {
	if err := sql.ValidateIdentifier("catalog", catalog); err != nil {
		return nil, err
	}

	result, err := s.exec.Execute(ctx, "SHOW SCHEMAS IN "+sql.QuoteIdentifier(catalog))
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas in %s: %w", catalog, err)
	}
	return names(result, "databaseName", "schema", "namespace", "name"), nil
}

func (s *catalogService) ListTables(ctx context.Context, catalog, schema string) ([]models.Table, error) {
	if catalog == "" {
		catalog = DefaultCatalog
	}
	if schema == "" {
		schema = DefaultSchema
	}
	if err := sql.ValidateIdentifier("catalog", catalog); err != nil {
		return nil, err
	}
	if err := sql.ValidateIdentifier("schema", schema); err != nil {
		return nil, err
	}

	statement := fmt.Sprintf("SHOW TABLES IN %s.%s", sql.QuoteIdentifier(catalog), sql.QuoteIdentifier(schema))
	result, err := s.exec.Execute(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s.%s: %w", catalog, schema, err)
	}

	tables := make([]models.Table, 0, result.Len())
	for _, name := range names(result, "tableName", "table_name", "name") {
		tables = append(tables, models.Table{
			Name:     name,
			Catalog:  catalog,
			Schema:   schema,
			FullName: catalog + "." + schema + "." + name,
		})
	}
	return tables, nil
}

func (s *catalogService) PreviewTable(ctx context.Context, ref sql.TableRef, limit int) (*models.TablePreview, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxPreviewLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", apperrors.ErrInvalidInput, MaxPreviewLimit)
	}

	result, err := s.exec.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref.Quoted(), limit))
	if err != nil {
		return nil, fmt.Errorf("failed to preview %s: %w", ref.FullName(), err)
	}

	rows := result.Maps()
	return &models.TablePreview{
		Columns:  result.Columns,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

func (s *catalogService) DescribeColumns(ctx context.Context, ref sql.TableRef) ([]models.Column, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	result, err := s.exec.Execute(ctx, "DESCRIBE TABLE "+ref.Quoted())
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", ref.FullName(), err)
	}

	columns := make([]models.Column, 0, result.Len())
	seen := make(map[string]bool, result.Len())
	for _, row := range result.Rows {
		name := strings.TrimSpace(row.String("col_name"))
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		// Partition columns are listed a second time under "# Partition Information".
		if seen[name] {
			continue
		}
		seen[name] = true

		columns = append(columns, models.Column{
			Name:        name,
			Type:        row.String("data_type"),
			Description: nullableString(row, "comment"),
		})
	}
	return columns, nil
}

func (s *catalogService) SampleRows(ctx context.Context, ref sql.TableRef) ([]map[string]any, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	result, err := s.exec.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref.Quoted(), sampleRowLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", ref.FullName(), err)
	}
	return result.Maps(), nil
}

func (s *catalogService) TableComment(ctx context.Context, ref sql.TableRef) *string {
	if err := ref.Validate(); err != nil {
		return nil
	}

	statement := fmt.Sprintf(
		"SELECT comment FROM %s.%s WHERE table_schema = %s AND table_name = %s",
		sql.QuoteIdentifier(ref.Catalog), informationSchemaT,
		sql.QuoteLiteral(ref.Schema), sql.QuoteLiteral(ref.Table))

	result, err := s.exec.Execute(ctx, statement)
	if err != nil {
		s.logger.Warn("Failed to read table comment",
			zap.String("table", ref.FullName()),
			zap.Error(err))
		return nil
	}
	if result.Len() == 0 {
		return nil
	}
	return nullableString(result.Rows[0], "comment")
}

func (s *catalogService) OtherTables(ctx context.Context, ref sql.TableRef) []models.DescribedTable {
	if err := ref.Validate(); err != nil {
		return []models.DescribedTable{}
	}

	statement := fmt.Sprintf(
		"SELECT table_name, comment FROM %s.%s WHERE table_schema = %s AND table_name != %s LIMIT %d",
		sql.QuoteIdentifier(ref.Catalog), informationSchemaT,
		sql.QuoteLiteral(ref.Schema), sql.QuoteLiteral(ref.Table), otherTablesLimit)

	result, err := s.exec.Execute(ctx, statement)
	if err != nil {
		s.logger.Warn("Failed to list sibling tables",
			zap.String("table", ref.FullName()),
			zap.Error(err))
		return []models.DescribedTable{}
	}

	tables := make([]models.DescribedTable, 0, result.Len())
	for _, row := range result.Rows {
		tables = append(tables, models.DescribedTable{
			Name:        row.String("table_name"),
			Description: nullableString(row, "comment"),
		})
	}
	return tables
}

func (s *catalogService) UpdateTableComment(ctx context.Context, ref sql.TableRef, description string) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	statement := fmt.Sprintf("COMMENT ON TABLE %s IS %s", ref.Quoted(), sql.QuoteLiteral(description))
	if _, err := s.exec.Execute(ctx, statement); err != nil {
		return fmt.Errorf("failed to update comment on %s: %w", ref.FullName(), err)
	}

	s.logger.Info("Updated table comment", zap.String("table", ref.FullName()))
	return nil
}

func (s *catalogService) UpdateColumnComments(ctx context.Context, ref sql.TableRef, descriptions map[string]string) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	columns := make([]string, 0, len(descriptions))
	for name := range descriptions {
		if err := sql.ValidateIdentifier("column", name); err != nil {
			return err
		}
		columns = append(columns, name)
	}
	sort.Strings(columns)

	for _, name := range columns {
		statement := fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s COMMENT %s",
			ref.Quoted(), sql.QuoteIdentifier(name), sql.QuoteLiteral(descriptions[name]))
		if _, err := s.exec.Execute(ctx, statement); err != nil {
			return fmt.Errorf("failed to update comment on column %s of %s: %w", name, ref.FullName(), err)
		}
	}

	s.logger.Info("Updated column comments",
		zap.String("table", ref.FullName()),
		zap.Int("columns", len(columns)))
	return nil
}

// names extracts the first non-empty candidate column from every row.
func names(result *warehouse.Result, candidates ...string) []string {
	out := make([]string, 0, result.Len())
	for _, row := range result.Rows {
		if n := row.FirstString(candidates...); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// nullableString keeps the difference between a NULL and an empty comment.
func nullableString(row warehouse.Row, column string) *string {
	v, ok := row.Get(column)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}
