package llm

import (
	"context"
	"sync"
)

// MockCall is one recorded GenerateResponse invocation.
type MockCall struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
}

// MockLLMClient is an in-memory LLMClient for tests. GenerateResponseFunc
// takes precedence; otherwise Responses are served in order and the last one
// repeats. With neither set the reply is empty.
type MockLLMClient struct {
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)
	Responses            []string

	Model    string
	Endpoint string

	mu    sync.Mutex
	calls []MockCall
}

// NewMockLLMClient returns a mock answering with the given contents in order.
func NewMockLLMClient(responses ...string) *MockLLMClient {
	return &MockLLMClient{
		Responses: responses,
		Model:     "mock-model",
		Endpoint:  "http://mock-endpoint",
	}
}

// StaticResponse returns a GenerateResponseFunc that always answers with
// content and a fixed token usage of 120 prompt and 30 completion tokens.
func StaticResponse(content string) func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
	return func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
		return &GenerateResponseResult{Content: content, PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, nil
	}
}

func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, MockCall{Prompt: prompt, SystemMessage: systemMessage, Temperature: temperature})
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	if len(m.Responses) == 0 {
		return &GenerateResponseResult{}, nil
	}
	content := m.Responses[min(n, len(m.Responses)-1)]
	return &GenerateResponseResult{Content: content}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how many times GenerateResponse ran.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Prompts returns the recorded prompts in call order.
func (m *MockLLMClient) Prompts() []string {
	calls := m.Calls()
	prompts := make([]string, len(calls))
	for i, c := range calls {
		prompts[i] = c.Prompt
	}
	return prompts
}

func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

var _ LLMClient = (*MockLLMClient)(nil)
