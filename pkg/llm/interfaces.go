// Package llm drafts text with chat-completion models. It speaks the
// OpenAI-compatible wire shape used by workspace serving endpoints and,
// alternatively, the Anthropic Messages API.
package llm

import (
	"context"
)

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// GenerateResponseResult is a completion together with its token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TokenSource supplies the bearer credential for each request.
// warehouse.TokenSource satisfies it, so OAuth tokens are refreshed transparently.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Ensure clients implement LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*BreakerClient)(nil)
)
