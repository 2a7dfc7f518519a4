package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// NewFromConfig creates the client selected by llm.provider, wrapped in a circuit breaker.
// endpoint is the resolved base URL (see config.Config.LLMEndpoint).
// For the openai provider, an explicit API key wins over the token source.
func NewFromConfig(cfg *config.LLMConfig, endpoint string, tokens TokenSource, logger *zap.Logger) (LLMClient, error) {
	var client LLMClient

	switch cfg.Provider {
	case "anthropic":
		c, err := NewAnthropicClient(&AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			MaxTokens: cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		client = c

	default:
		if cfg.APIKey != "" {
			tokens = staticKey(cfg.APIKey)
		}
		if tokens == nil {
			return nil, fmt.Errorf("create openai client: no API key or token source")
		}
		c, err := NewClient(&Config{
			Endpoint:  endpoint,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Tokens:    tokens,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		client = c
	}

	return NewBreakerClient(client, DefaultBreakerConfig(), logger), nil
}
