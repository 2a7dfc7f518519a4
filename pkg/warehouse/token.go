package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource supplies bearer tokens for warehouse and serving-endpoint calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("no access token configured")
	}
	return string(s), nil
}

// OAuthConfig configures machine-to-machine OAuth for a workspace.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	// TokenURL defaults to https://{host}/oidc/v1/token.
	TokenURL   string
	Host       string
	HTTPClient *http.Client
}

// TokenURL returns the workspace OIDC token endpoint for host.
func TokenURL(host string) string {
	return "https://" + host + "/oidc/v1/token"
}

type oauthTokenSource struct {
	src oauth2.TokenSource
}

// NewOAuthTokenSource returns a client-credentials token source with scope all-apis.
// Tokens are cached and refreshed shortly before expiry.
func NewOAuthTokenSource(cfg OAuthConfig) (TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		if cfg.Host == "" {
			return nil, errors.New("host or token URL is required")
		}
		tokenURL = TokenURL(cfg.Host)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"all-apis"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// The source outlives any single request, so it gets its own context.
	base := context.Background()
	if cfg.HTTPClient != nil {
		base = context.WithValue(base, oauth2.HTTPClient, cfg.HTTPClient)
	}

	return &oauthTokenSource{src: cc.TokenSource(base)}, nil
}

// Token implements TokenSource.
func (o *oauthTokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := o.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain OAuth token: %w", err)
	}
	return tok.AccessToken, nil
}
