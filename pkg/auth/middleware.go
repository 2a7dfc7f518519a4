package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
)

// Middleware provides HTTP authentication middleware.
// It resolves the session cookie against the SessionStore.
type Middleware struct {
	cookies  *CookieManager
	sessions SessionStore
	// required false lets anonymous requests through without a user in context.
	required bool
	logger   *zap.Logger
}

// NewMiddleware creates auth middleware. When required is false, requests
// without a valid session still reach the handler.
func NewMiddleware(cookies *CookieManager, sessions SessionStore, required bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		cookies:  cookies,
		sessions: sessions,
		required: required,
		logger:   logger.Named("auth"),
	}
}

// RequireSession puts the session's user in the request context.
// A missing, unknown or expired session yields a 401 JSON error.
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := m.cookies.SessionID(r)
		if id == "" {
			m.unauthorized(w, "Not authenticated")
			return
		}

		session, err := m.sessions.Get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrSessionExpired) {
				m.logger.Error("Session lookup failed", zap.Error(err))
			}
			m.unauthorized(w, "Session expired or invalid")
			return
		}

		ctx := WithUser(r.Context(), session.User)
		ctx = withSessionID(ctx, session.ID)
		next(w, r.WithContext(ctx))
	}
}

// Optional is RequireSession when login is required and a pass-through otherwise.
func (m *Middleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	if m.required {
		return m.RequireSession(next)
	}
	return next
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
