package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/llm"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/prompts"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/retry"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

const (
	// metadataSampleRows is how many sampled rows feed the prompts.
	metadataSampleRows = 5

	DefaultRunsLimit = 50
	MaxRunsLimit     = 500
)

// placeholderDescriptions are comment values that count as no description.
var placeholderDescriptions = map[string]bool{
	"null": true,
	"none": true,
	"nan":  true,
	"n/a":  true,
	"-":    true,
}

// IsMissingDescription reports whether a comment value needs drafting.
// Non-strings, blanks, placeholders and strings of three characters or fewer
// are all treated as missing.
func IsMissingDescription(v any) bool {
	var s string
	switch d := v.(type) {
	case string:
		s = d
	case *string:
		if d == nil {
			return true
		}
		s = *d
	default:
		return true
	}

	s = strings.TrimSpace(s)
	if s == "" || placeholderDescriptions[strings.ToLower(s)] {
		return true
	}
	return len([]rune(s)) <= 3
}

// RunRepository persists enrichment runs.
type RunRepository interface {
	Create(ctx context.Context, run *models.EnrichmentRun) error
	ListByUser(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error)
}

// EnrichmentService drafts table and column descriptions with an LLM.
type EnrichmentService interface {
	// TableMetadata returns the table's columns and its first few sample rows.
	TableMetadata(ctx context.Context, ref sql.TableRef) (*models.TableMetadata, error)

	// GenerateTableDescription returns a drafted table description. When the model
	// does not answer with the requested JSON, its raw text is returned instead.
	GenerateTableDescription(ctx context.Context, username string, ref sql.TableRef) (string, error)

	// GenerateColumnDescriptions drafts descriptions for columns that are missing one.
	// It returns an empty list without calling the model when nothing is missing,
	// and an empty list when the model's answer cannot be parsed.
	GenerateColumnDescriptions(ctx context.Context, username string, ref sql.TableRef) ([]models.ColumnSuggestion, error)

	// ListRuns returns the user's most recent runs, newest first.
	ListRuns(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error)
}

type enrichmentService struct {
	catalog     CatalogService
	llmClient   llm.LLMClient
	templates   *prompts.Templates
	runs        RunRepository
	temperature float64
	retryConfig *retry.Config
	logger      *zap.Logger
}

// NewEnrichmentService creates an enrichment service.
// runs may be nil, in which case generations are not recorded.
func NewEnrichmentService(
	catalog CatalogService,
	llmClient llm.LLMClient,
	templates *prompts.Templates,
	runs RunRepository,
	temperature float64,
	logger *zap.Logger,
) EnrichmentService {
	if templates == nil {
		templates = prompts.DefaultTemplates()
	}
	return &enrichmentService{
		catalog:     catalog,
		llmClient:   llmClient,
		templates:   templates,
		runs:        runs,
		temperature: temperature,
		retryConfig: retry.LLMConfig(),
		logger:      logger.Named("enrichment"),
	}
}

var _ EnrichmentService = (*enrichmentService)(nil)

func (s *enrichmentService) TableMetadata(ctx context.Context, ref sql.TableRef) (*models.TableMetadata, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var (
		columns []models.Column
		sample  []map[string]any
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		columns, err = s.catalog.DescribeColumns(gctx, ref)
		return err
	})
	g.Go(func() error {
		var err error
		sample, err = s.catalog.SampleRows(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(sample) > metadataSampleRows {
		sample = sample[:metadataSampleRows]
	}
	if sample == nil {
		sample = []map[string]any{}
	}

	return &models.TableMetadata{
		TableName:  ref.Table,
		FullName:   ref.FullName(),
		Columns:    columns,
		SampleData: sample,
	}, nil
}

func (s *enrichmentService) GenerateTableDescription(ctx context.Context, username string, ref sql.TableRef) (string, error) {
	meta, err := s.TableMetadata(ctx, ref)
	if err != nil {
		return "", err
	}

	others := s.catalog.OtherTables(ctx, ref)
	otherTables := make([]prompts.OtherTable, 0, len(others))
	for _, t := range others {
		otherTables = append(otherTables, prompts.OtherTable{Table: t.Name, Description: t.Description})
	}

	columns := make([]prompts.ColumnContext, 0, len(meta.Columns))
	for _, c := range meta.Columns {
		columns = append(columns, prompts.ColumnContext{
			Name:         c.Name,
			Type:         c.Type,
			Description:  c.Description,
			SampleValues: prompts.SampleValues(meta.SampleData, c.Name),
		})
	}

	prompt := s.templates.BuildTablePrompt(prompts.TablePromptInput{
		Catalog:     ref.Catalog,
		Schema:      ref.Schema,
		Table:       ref.Table,
		OtherTables: otherTables,
		Columns:     columns,
	})

	result, err := s.generate(ctx, ref, prompt)
	if err != nil {
		return "", err
	}

	type tableResponse struct {
		TableDescription string `json:"table_description"`
	}
	var description string
	parsed, err := llm.ParseJSONResponse[tableResponse](result.Content)
	if err != nil {
		s.logger.Warn("LLM response was not the requested JSON, returning raw text",
			zap.String("table", ref.FullName()),
			zap.Error(err))
		description = llm.StripCodeFence(result.Content)
	} else {
		description = parsed.TableDescription
	}

	s.recordRun(ctx, username, models.RunKindTable, ref, result, description, map[string]any{
		"other_tables": len(otherTables),
		"columns":      len(columns),
		"parsed":       err == nil,
	})

	return description, nil
}

func (s *enrichmentService) GenerateColumnDescriptions(ctx context.Context, username string, ref sql.TableRef) ([]models.ColumnSuggestion, error) {
	meta, err := s.TableMetadata(ctx, ref)
	if err != nil {
		return nil, err
	}

	var (
		missing   []prompts.MissingColumn
		described []prompts.DescribedColumn
	)
	for _, c := range meta.Columns {
		if IsMissingDescription(c.Description) {
			missing = append(missing, prompts.MissingColumn{Name: c.Name, Type: c.Type})
		} else {
			described = append(described, prompts.DescribedColumn{Name: c.Name, Type: c.Type, Description: c.Description})
		}
	}

	if len(missing) == 0 {
		s.logger.Debug("No columns need descriptions", zap.String("table", ref.FullName()))
		return []models.ColumnSuggestion{}, nil
	}

	samples := make(map[string][]string, len(missing))
	if len(meta.SampleData) > 0 {
		for _, c := range missing {
			samples[c.Name] = prompts.SampleValues(meta.SampleData, c.Name)
		}
	}

	prompt := s.templates.BuildColumnPrompt(prompts.ColumnPromptInput{
		Catalog:          ref.Catalog,
		Schema:           ref.Schema,
		Table:            ref.Table,
		TableDescription: s.catalog.TableComment(ctx, ref),
		DescribedColumns: described,
		MissingColumns:   missing,
		SampleValues:     samples,
	})

	result, err := s.generate(ctx, ref, prompt)
	if err != nil {
		return nil, err
	}

	type columnsResponse struct {
		Columns []models.ColumnSuggestion `json:"columns"`
	}
	suggestions := []models.ColumnSuggestion{}
	parsed, err := llm.ParseJSONResponse[columnsResponse](result.Content)
	if err != nil {
		s.logger.Warn("Failed to parse column descriptions from LLM response",
			zap.String("table", ref.FullName()),
			zap.Error(err))
	} else if parsed.Columns != nil {
		suggestions = parsed.Columns
	}

	s.recordRun(ctx, username, models.RunKindColumns, ref, result, result.Content, map[string]any{
		"missing_columns": len(missing),
		"suggestions":     len(suggestions),
		"parsed":          err == nil,
	})

	return suggestions, nil
}

func (s *enrichmentService) ListRuns(ctx context.Context, username string, limit int) ([]*models.EnrichmentRun, error) {
	if s.runs == nil {
		return []*models.EnrichmentRun{}, nil
	}
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}

	runs, err := s.runs.ListByUser(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrichment runs: %w", err)
	}
	if runs == nil {
		runs = []*models.EnrichmentRun{}
	}
	return runs, nil
}

// generate calls the model, retrying transient failures.
func (s *enrichmentService) generate(ctx context.Context, ref sql.TableRef, prompt string) (*llm.GenerateResponseResult, error) {
	requestID := uuid.NewString()
	ctx = llm.WithRequestID(ctx, requestID)

	start := time.Now()
	result, err := retry.DoWithResultIfRetryable(ctx, s.retryConfig, func() (*llm.GenerateResponseResult, error) {
		return s.llmClient.GenerateResponse(ctx, prompt, s.templates.SystemMessage, s.temperature)
	})
	if err != nil {
		s.logger.Error("LLM generation failed",
			zap.String("table", ref.FullName()),
			zap.String("request_id", requestID),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return nil, fmt.Errorf("failed to generate description for %s: %w", ref.FullName(), err)
	}

	s.logger.Info("LLM generation completed",
		zap.String("table", ref.FullName()),
		zap.String("request_id", requestID),
		zap.String("model", s.llmClient.GetModel()),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// recordRun stores the generation when a repository is configured.
// Recording failures are logged and never fail the request.
func (s *enrichmentService) recordRun(
	ctx context.Context,
	username string,
	kind models.RunKind,
	ref sql.TableRef,
	result *llm.GenerateResponseResult,
	text string,
	metadata map[string]any,
) {
	if s.runs == nil {
		return
	}

	run := &models.EnrichmentRun{
		ID:               uuid.New(),
		Username:         username,
		Kind:             kind,
		Catalog:          ref.Catalog,
		Schema:           ref.Schema,
		Table:            ref.Table,
		Model:            s.llmClient.GetModel(),
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		ResultText:       text,
		Metadata:         metadata,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("Failed to record enrichment run",
			zap.String("table", ref.FullName()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
