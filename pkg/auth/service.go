// Package auth signs users in against the lakehouse workspace and keeps
// their sessions.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// ErrAuthenticationFailed is returned when the workspace rejects a login for a
// reason other than bad credentials.
var ErrAuthenticationFailed = errors.New("authentication failed")

// LoginService verifies workspace credentials.
type LoginService interface {
	// Login checks the credentials and returns the user's profile.
	// The password is used for this call only and is never retained.
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// WorkspaceConfig identifies the workspace to authenticate against.
type WorkspaceConfig struct {
	// Host is the workspace hostname. BaseURL overrides https://{Host} when set.
	Host    string
	BaseURL string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

type workspaceLogin struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLoginService creates a LoginService backed by the workspace REST API.
func NewLoginService(cfg WorkspaceConfig, logger *zap.Logger) LoginService {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + cfg.Host
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &workspaceLogin{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.Named("auth"),
	}
}

func (s *workspaceLogin) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	resp, err := s.get(ctx, "/api/2.0/clusters/list", username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to reach workspace: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.logger.Info("Login rejected", zap.String("username", username))
		return nil, apperrors.ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("Login failed",
			zap.String("username", username),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: workspace returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	user := &models.User{
		Email:    username,
		Name:     defaultName(username),
		Username: username,
	}
	s.fillProfile(ctx, user, password)

	s.logger.Info("User logged in", zap.String("username", username))
	return user, nil
}

// scimMe is the subset of the SCIM /Me response used for the profile.
type scimMe struct {
	DisplayName string `json:"displayName"`
	Emails      []struct {
		Value string `json:"value"`
	} `json:"emails"`
}

// fillProfile overlays display name and primary email from SCIM.
// Failures keep the defaults derived from the username.
func (s *workspaceLogin) fillProfile(ctx context.Context, user *models.User, password string) {
	resp, err := s.get(ctx, "/api/2.0/preview/scim/v2/Me", user.Username, password)
	if err != nil {
		s.logger.Debug("SCIM profile lookup failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("SCIM profile lookup returned non-200", zap.Int("status", resp.StatusCode))
		return
	}

	var me scimMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		s.logger.Debug("Failed to decode SCIM profile", zap.Error(err))
		return
	}
	if me.DisplayName != "" {
		user.Name = me.DisplayName
	}
	if len(me.Emails) > 0 && me.Emails[0].Value != "" {
		user.Email = me.Emails[0].Value
	}
}

func (s *workspaceLogin) get(ctx context.Context, path, username, password string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")
	return s.httpClient.Do(req)
}

// defaultName is the part of the username before "@".
func defaultName(username string) string {
	if i := strings.IndexByte(username, '@'); i >= 0 {
		return username[:i]
	}
	return username
}
