package auth

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

type contextKey int

const (
	userKey contextKey = iota
	sessionIDKey
)

// WithUser returns a context carrying the signed-in user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// UsernameFromContext returns the signed-in username, or "" when anonymous.
func UsernameFromContext(ctx context.Context) string {
	user, _ := UserFromContext(ctx)
	return user.Username
}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the id of the session that authenticated the request.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}
