//go:build integration

package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/testhelpers"
)

// Test_001_EnrichmentRuns verifies migration 001 creates the run history table and index.
func Test_001_EnrichmentRuns(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var dataType string
	var columnDefault string
	err := testDB.DB.QueryRow(ctx, `
		SELECT data_type, column_default
		FROM information_schema.columns
		WHERE table_name = 'lakehouse_enrichment_runs'
		AND column_name = 'metadata'
	`).Scan(&dataType, &columnDefault)
	require.NoError(t, err, "Failed to query column information")
	assert.Equal(t, "jsonb", dataType)
	assert.Contains(t, columnDefault, "'{}'::jsonb")

	var indexExists bool
	err = testDB.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE tablename = 'lakehouse_enrichment_runs'
			AND indexname = 'idx_lakehouse_enrichment_runs_user_created'
		)
	`).Scan(&indexExists)
	require.NoError(t, err)
	assert.True(t, indexExists, "user/created_at index should exist")

	_, err = testDB.DB.Exec(ctx, `
		INSERT INTO lakehouse_enrichment_runs (id, username, kind, catalog_name, schema_name, table_name, model)
		VALUES (gen_random_uuid(), 'ana', 'bogus', 'c', 's', 't', 'm')
	`)
	assert.Error(t, err, "kind check constraint should reject unknown kinds")
}
