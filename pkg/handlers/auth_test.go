package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

func newAuthMux(login *mockLoginService, stack *authStack) *http.ServeMux {
	mux := http.NewServeMux()
	NewAuthHandler(login, stack.sessions, stack.cookies, stack.middleware, time.Second, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func postLogin(mux http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
	return rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stack := newAuthStack(true)
	user := testUser
	mux := newAuthMux(&mockLoginService{user: &user}, stack)

	rec := postLogin(mux, `{"username":"ada@example.com","password":"hunter2"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, testUser, resp.User)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, cookies[0].Value, "hunter2")

	// The cookie resolves to a stored session for the user.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	id := stack.cookies.SessionID(req)
	require.NotEmpty(t, id)
	session, err := stack.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, testUser, session.User)
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid credentials", `{"username":"ada","password":"nope"}`, apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"workspace down", `{"username":"ada","password":"pw"}`, errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "Login failed: dial tcp: connection refused"},
		{"malformed body", `{"username":`, nil, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newAuthMux(&mockLoginService{err: tt.err}, newAuthStack(true))

			rec := postLogin(mux, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantMsg, resp["message"])
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	stack := newAuthStack(true)
	mux := newAuthMux(&mockLoginService{}, stack)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(stack.sessionCookie(t))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, testUser, resp.User)
}

func TestAuthHandler_Logout(t *testing.T) {
	stack := newAuthStack(true)
	mux := newAuthMux(&mockLoginService{}, stack)
	cookie := stack.sessionCookie(t)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)

	// The old cookie no longer resolves to a session.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	mux := newAuthMux(&mockLoginService{user: &models.User{}}, newAuthStack(true))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
