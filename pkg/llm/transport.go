package llm

import (
	"context"
	"fmt"
	"net/http"
)

type contextKey string

const requestIDKey contextKey = "llm_request_id"

const requestIDHeader = "X-Request-Id"

// WithRequestID tags outgoing LLM requests so they can be correlated with an enrichment run.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// authTransport sets the bearer token from a TokenSource on every request.
// It replaces whatever Authorization header the SDK set from its static key.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	if t.tokens != nil {
		token, err := t.tokens.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to obtain LLM token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := RequestIDFromContext(req.Context()); ok {
		req.Header.Set(requestIDHeader, id)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func newHTTPClient(base *http.Client, tokens TokenSource) *http.Client {
	client := &http.Client{}
	var rt http.RoundTripper
	if base != nil {
		client.Timeout = base.Timeout
		rt = base.Transport
	}
	client.Transport = &authTransport{base: rt, tokens: tokens}
	return client
}

type staticKey string

func (k staticKey) Token(context.Context) (string, error) {
	return string(k), nil
}
