package models

import (
	"time"

	"github.com/google/uuid"
)

// RunKind distinguishes the two generation flows.
type RunKind string

const (
	RunKindTable   RunKind = "table"
	RunKindColumns RunKind = "columns"
)

// EnrichmentRun records one LLM generation: who asked, for which table,
// what the model returned and what it cost.
// Stored in lakehouse_enrichment_runs.
type EnrichmentRun struct {
	ID               uuid.UUID      `json:"id"`
	Username         string         `json:"username"`
	Kind             RunKind        `json:"kind"`
	Catalog          string         `json:"catalog"`
	Schema           string         `json:"schema"`
	Table            string         `json:"table"`
	Model            string         `json:"model"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	ResultText       string         `json:"result_text"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
