package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/warehouse"
)

// ============================================================================
// Fake warehouse executor
// ============================================================================

type fakeResponse struct {
	result *warehouse.Result
	err    error
}

// fakeExecutor answers statements by prefix. The longest matching prefix wins.
type fakeExecutor struct {
	mu         sync.Mutex
	responses  map[string]fakeResponse
	statements []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: make(map[string]fakeResponse)}
}

func (f *fakeExecutor) on(t *testing.T, prefix string, columns []string, rows ...[]any) {
	t.Helper()
	result, err := warehouse.NewResult(columns, rows)
	require.NoError(t, err)
	f.responses[prefix] = fakeResponse{result: result}
}

func (f *fakeExecutor) fail(prefix string, err error) {
	f.responses[prefix] = fakeResponse{err: err}
}

func (f *fakeExecutor) Execute(ctx context.Context, statement string) (*warehouse.Result, error) {
	f.mu.Lock()
	f.statements = append(f.statements, statement)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(statement, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, errors.New("unexpected statement: " + statement)
	}
	resp := f.responses[best]
	return resp.result, resp.err
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.statements))
	copy(out, f.statements)
	return out
}

// ============================================================================
// Fake run repository
// ============================================================================

type fakeRunRepo struct {
	mu        sync.Mutex
	runs      []*models.EnrichmentRun
	createErr error
}

func (r *fakeRunRepo) Create(ctx context.Context, run *models.EnrichmentRun) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepo) ListByUser(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.EnrichmentRun
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.runs[i].Username == username {
			out = append(out, r.runs[i])
		}
	}
	return out, nil
}
