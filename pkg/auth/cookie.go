package auth

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/sessions"
)

// CookieName is the name of the session cookie.
const CookieName = "session_id"

// cookieKeySessionID is the value key holding the session id inside the signed cookie.
const cookieKeySessionID = "sid"

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope. Empty means host-only.
	Domain string
}

// DeriveCookieSettings determines cookie security settings from the base URL:
//   - http://localhost:8000 → Secure: false, Domain: ""
//   - https://lakehouse.example.com → Secure: true, Domain: ""
//
// The configCookieDomain parameter allows explicit override if needed.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	return CookieSettings{
		Secure: isHTTPS(baseURL),
		Domain: configCookieDomain,
	}
}

// isHTTPS determines if the given base URL uses HTTPS protocol.
// Returns true for HTTPS, false for HTTP, true for empty/invalid URLs (safe default).
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}

// CookieManager carries the session id in a signed cookie.
// The cookie holds only the id; the session itself lives in a SessionStore.
type CookieManager struct {
	store *sessions.CookieStore
}

// NewCookieManager creates a cookie manager.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// signing key. It must be consistent across restarts and replicas.
func NewCookieManager(secret string, ttl time.Duration, settings CookieSettings) *CookieManager {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieManager{store: store}
}

// SessionID returns the session id carried by the request, or "" when the
// cookie is absent or its signature does not verify.
func (c *CookieManager) SessionID(r *http.Request) string {
	session, err := c.store.Get(r, CookieName)
	if err != nil || session.IsNew {
		return ""
	}
	id, _ := session.Values[cookieKeySessionID].(string)
	return id
}

// Set writes the session cookie.
func (c *CookieManager) Set(w http.ResponseWriter, r *http.Request, sessionID string) error {
	session, _ := c.store.New(r, CookieName)
	session.Values[cookieKeySessionID] = sessionID
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (c *CookieManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.New(r, CookieName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
