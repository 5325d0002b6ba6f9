package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when a session has no value for a key.
var (
	ErrNotFound     = errors.New("not found")
	ErrEmptySession = errors.New("empty session id")
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Backend is a key-value store partitioned by browsing session.
type Backend interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	// Purge drops every session not read or written since olderThan and reports how many went.
	Purge(ctx context.Context, olderThan time.Time) (int, error)
	Ping(context.Context) bool
	Close() bool
}

// SessionStore binds a Backend to a single session id.
type SessionStore struct {
	backend   Backend
	sessionID string
}

// Scoped returns the store view of one session.
func Scoped(backend Backend, sessionID string) *SessionStore {
	return &SessionStore{
		backend:   backend,
		sessionID: sessionID,
	}
}

// Get reads key for the bound session.
func (s *SessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.sessionID == "" {
		return nil, ErrEmptySession
	}
	return s.backend.Get(ctx, s.sessionID, key)
}

// Set writes key for the bound session.
func (s *SessionStore) Set(ctx context.Context, key string, value []byte) error {
	if s.sessionID == "" {
		return ErrEmptySession
	}
	return s.backend.Set(ctx, s.sessionID, key, value)
}
