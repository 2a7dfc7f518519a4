package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
}

// MeResponse is returned by GET /api/me.
type MeResponse struct {
	User models.User `json:"user"`
}

// AuthHandler signs users in against the workspace and manages their session cookie.
type AuthHandler struct {
	login        auth.LoginService
	sessions     auth.SessionStore
	cookies      *auth.CookieManager
	middleware   *auth.Middleware
	loginTimeout time.Duration
	logger       *zap.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(
	login auth.LoginService,
	sessions auth.SessionStore,
	cookies *auth.CookieManager,
	middleware *auth.Middleware,
	loginTimeout time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		login:        login,
		sessions:     sessions,
		cookies:      cookies,
		middleware:   middleware,
		loginTimeout: loginTimeout,
		logger:       logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/me", h.middleware.RequireSession(h.Me))
}

// Login handles POST /api/login.
// The password is checked against the workspace and then discarded; only the
// profile is kept on the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.loginTimeout)
	defer cancel()

	user, err := h.login.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.logger.Info("Login rejected", zap.String("username", req.Username))
			respondError(w, h.logger, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
			return
		}
		h.logger.Error("Login failed",
			zap.String("username", req.Username),
			zap.String("error", logging.SanitizeError(err)))
		respondError(w, h.logger, http.StatusInternalServerError, "login_failed", "Login failed: "+logging.SanitizeError(err))
		return
	}

	session, err := h.sessions.Create(ctx, *user)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "login_failed", "Login failed: could not create session")
		return
	}

	if err := h.cookies.Set(w, r, session.ID); err != nil {
		h.logger.Error("Failed to set session cookie", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "login_failed", "Login failed: could not set session cookie")
		return
	}

	h.logger.Info("User logged in", zap.String("username", user.Username))
	respondJSON(w, h.logger, LoginResponse{Success: true, User: *user})
}

// Logout handles POST /api/logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.cookies.SessionID(r); id != "" {
		if err := h.sessions.Delete(r.Context(), id); err != nil {
			h.logger.Warn("Failed to delete session", zap.Error(err))
		}
	}

	if err := h.cookies.Clear(w, r); err != nil {
		h.logger.Error("Failed to clear session cookie", zap.Error(err))
	}

	respondJSON(w, h.logger, SuccessResponse{Success: true})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}
	respondJSON(w, h.logger, MeResponse{User: user})
}
