package authz

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a session id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Session is one logged-in browser session: the user it belongs to and
// the CSRF token double-submitted on every mutating request.
type Session struct {
	ID        string
	UserName  string
	CSRFToken string
}

// SessionStore persists sessions. The Redis implementation below is the
// production store; tests use an in-memory map.
type SessionStore interface {
	Create(ctx context.Context, userName string, ttl time.Duration) (*Session, error)
	Find(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// VerifyCSRF compares the header token against the session's stored token
// in constant time.
func VerifyCSRF(session *Session, headerToken string) bool {
	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(headerToken)) == 1
}

// RedisSessionStore keeps sessions as Redis hashes keyed by session id.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(id string) string { return "oncall:session:" + id }

// Create mints a new session with fresh id and CSRF token.
func (s *RedisSessionStore) Create(ctx context.Context, userName string, ttl time.Duration) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserName:  userName,
		CSRFToken: uuid.NewString(),
	}
	key := sessionKey(sess.ID)
	if err := s.client.HSet(ctx, key, "user", sess.UserName, "csrf_token", sess.CSRFToken).Err(); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return nil, fmt.Errorf("setting session ttl: %w", err)
		}
	}
	return sess, nil
}

// Find loads a session by id.
func (s *RedisSessionStore) Find(ctx context.Context, sessionID string) (*Session, error) {
	vals, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNoSession
	}
	return &Session{ID: sessionID, UserName: vals["user"], CSRFToken: vals["csrf_token"]}, nil
}

// Delete removes a session (logout).
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

// InMemorySessionStore is the test/dev store.
type InMemorySessionStore struct {
	sessions map[string]*Session
}

// NewInMemorySessionStore creates an empty in-memory store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, userName string, _ time.Duration) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), UserName: userName, CSRFToken: uuid.NewString()}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *InMemorySessionStore) Find(_ context.Context, sessionID string) (*Session, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}
