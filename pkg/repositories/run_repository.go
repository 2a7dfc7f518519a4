// Package repositories holds the PostgreSQL data access for run history.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// RunRepository provides data access for enrichment run history.
type RunRepository interface {
	Create(ctx context.Context, run *models.EnrichmentRun) error
	ListByUser(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error)
}

type runRepository struct {
	db *database.DB
}

// NewRunRepository creates a run repository backed by PostgreSQL.
func NewRunRepository(db *database.DB) RunRepository {
	return &runRepository{db: db}
}

var _ RunRepository = (*runRepository)(nil)

func (r *runRepository) Create(ctx context.Context, run *models.EnrichmentRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	metadata, err := marshalMetadata(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO lakehouse_enrichment_runs (
			id, username, kind,
			catalog_name, schema_name, table_name,
			model, prompt_tokens, completion_tokens,
			result_text, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		run.ID,
		run.Username,
		string(run.Kind),
		run.Catalog,
		run.Schema,
		run.Table,
		run.Model,
		run.PromptTokens,
		run.CompletionTokens,
		run.ResultText,
		metadata,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enrichment run: %w", err)
	}

	return nil
}

func (r *runRepository) ListByUser(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error) {
	query := `
		SELECT id, username, kind,
		       catalog_name, schema_name, table_name,
		       model, prompt_tokens, completion_tokens,
		       result_text, metadata, created_at
		FROM lakehouse_enrichment_runs
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrichment runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.EnrichmentRun, 0)
	for rows.Next() {
		var run models.EnrichmentRun
		var kind string
		var metadata []byte

		err := rows.Scan(
			&run.ID,
			&run.Username,
			&kind,
			&run.Catalog,
			&run.Schema,
			&run.Table,
			&run.Model,
			&run.PromptTokens,
			&run.CompletionTokens,
			&run.ResultText,
			&metadata,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrichment run: %w", err)
		}

		run.Kind = models.RunKind(kind)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &run.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrichment runs: %w", err)
	}

	return runs, nil
}

// marshalMetadata renders nil as an empty object to satisfy the NOT NULL column.
func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
