package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "liftlog-session||"

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps login tokens to user ids.
type SessionStore interface {
	Create(ctx context.Context, token, userID string) error
	Lookup(ctx context.Context, token string) (string, error)
	// Delete removes the token and returns the user it belonged to.
	Delete(ctx context.Context, token string) (string, error)
}

var (
	_ SessionStore = (*RedisSessions)(nil)
	_ SessionStore = (*MemorySessions)(nil)
)

// RedisSessions keeps tokens in Redis with a TTL so they expire on their own.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions creates a Redis-backed session store.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (r *RedisSessions) Create(ctx context.Context, token, userID string) error {
	if err := r.client.Set(ctx, sessionKeyPrefix+token, userID, r.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up session: %w", err)
	}
	return userID, nil
}

func (r *RedisSessions) Delete(ctx context.Context, token string) (string, error) {
	userID, err := r.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if err := r.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return "", fmt.Errorf("deleting session: %w", err)
	}
	return userID, nil
}

// MemorySessions is the single-process session store used when no Redis is
// configured.
type MemorySessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession

	Now func() time.Time
}

type memorySession struct {
	userID  string
	expires time.Time
}

// NewMemorySessions creates an in-memory session store.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		Now:      time.Now,
	}
}

func (m *MemorySessions) Create(_ context.Context, token, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = memorySession{userID: userID, expires: m.Now().Add(m.ttl)}
	return nil
}

func (m *MemorySessions) Lookup(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(token)
}

func (m *MemorySessions) lookup(token string) (string, error) {
	s, ok := m.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if m.Now().After(s.expires) {
		delete(m.sessions, token)
		return "", ErrSessionNotFound
	}
	return s.userID, nil
}

func (m *MemorySessions) Delete(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, err := m.lookup(token)
	if err != nil {
		return "", err
	}
	delete(m.sessions, token)
	return userID, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemorySessions) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	n := 0
	for token, s := range m.sessions {
		if now.After(s.expires) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}
