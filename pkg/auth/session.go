package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// DefaultSessionTTL matches the cookie lifetime.
const DefaultSessionTTL = 8 * time.Hour

// SessionStore keeps sessions server-side. Get returns apperrors.ErrNotFound
// for unknown ids and apperrors.ErrSessionExpired for expired ones.
type SessionStore interface {
	Create(ctx context.Context, user models.User) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// NewSessionID returns an unguessable id: a UUIDv4 followed by 32 random
// bytes, URL-safe encoded.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return uuid.NewString() + "." + base64.RawURLEncoding.EncodeToString(buf), nil
}

func newSession(user models.User, now time.Time, ttl time.Duration) (*models.Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}
	return &models.Session{
		ID:        id,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// ============================================================================
// In-memory store
// ============================================================================

// MemoryStore is a process-local SessionStore. Expired sessions are removed
// when they are next looked up.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, user models.User) (*models.Session, error) {
	session, err := newSession(user, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if session.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, apperrors.ErrSessionExpired
	}
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ============================================================================
// Redis store
// ============================================================================

const redisKeyPrefix = "lakehouse:session:"

// RedisStore shares sessions between replicas. Redis expires keys at the
// session's expiry, so a missing key covers both unknown and expired ids.
// With a sealer, payloads are encrypted and bound to their key.
type RedisStore struct {
	client *redis.Client
	sealer *crypto.Sealer
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store. sealer may be nil.
func NewRedisStore(client *redis.Client, ttl time.Duration, sealer *crypto.Sealer) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, sealer: sealer, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Create(ctx context.Context, user models.User) (*models.Session, error) {
	session, err := newSession(user, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	key := redisKeyPrefix + session.ID
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data, key); err != nil {
			return nil, fmt.Errorf("failed to seal session: %w", err)
		}
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	key := redisKeyPrefix + id
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.sealer != nil {
		// A payload that does not open was written under another secret.
		if data, err = s.sealer.Open(data, key); err != nil {
			return nil, apperrors.ErrNotFound
		}
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Expired(s.now()) {
		_ = s.client.Del(ctx, redisKeyPrefix+id).Err()
		return nil, apperrors.ErrSessionExpired
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var (
	_ SessionStore = (*MemoryStore)(nil)
	_ SessionStore = (*RedisStore)(nil)
)
