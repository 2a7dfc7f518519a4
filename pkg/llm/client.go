package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to OpenAI-compatible LLM endpoints,
// including workspace model serving at https://{host}/serving-endpoints.
type Client struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint  string      // Base URL, e.g., "https://dbc-1234.cloud.databricks.com/serving-endpoints"
	Model     string      // Model or serving endpoint name
	MaxTokens int         // Completion cap; 0 leaves it to the server
	Tokens    TokenSource // Bearer credential, resolved per request
	// HTTPClient is optional; its transport is wrapped to add the bearer token.
	HTTPClient *http.Client
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	// The static key is a placeholder; authTransport sets the real token.
	clientConfig := openai.DefaultConfig("")
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	clientConfig.HTTPClient = newHTTPClient(cfg.HTTPClient, cfg.Tokens)

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse sends one chat turn. An empty system message is omitted,
// since some serving endpoints reject blank system turns. A completion cut off
// by max_tokens is returned as-is with a warning; callers fall back to the raw
// text when it no longer parses.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	req := c.chatRequest(prompt, systemMessage, temperature)

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("LLM request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, c.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewErrorWithContext(ErrorTypeResponse, "no choices in response", false, nil, c.model, c.endpoint, 0)
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, NewErrorWithContext(ErrorTypeResponse,
			fmt.Sprintf("empty completion (finish_reason %q)", choice.FinishReason), false, nil, c.model, c.endpoint, 0)
	}
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn("LLM output truncated at max_tokens",
			zap.Int("max_tokens", c.maxTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Duration("elapsed", elapsed))

	return &GenerateResponseResult{
		Content:          choice.Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *Client) chatRequest(prompt, systemMessage string, temperature float64) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(systemMessage) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemMessage})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	}
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) GetEndpoint() string {
	return c.endpoint
}

func (c *Client) classify(err error) error {
	llmErr := ClassifyError(err)
	if llmErr.Model == "" {
		llmErr.Model = c.model
	}
	if llmErr.Endpoint == "" {
		llmErr.Endpoint = c.endpoint
	}
	return llmErr
}
