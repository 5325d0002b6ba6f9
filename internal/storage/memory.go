package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type session struct {
	values     map[string][]byte
	lastAccess time.Time
}

// MemoryStorage represents an in-memory session storage with locking mechanisms
type MemoryStorage struct {
	mx       sync.RWMutex
	sessions map[string]*session

	clock clockwork.Clock
	log   Log
}

// NewMemoryStorage creates a new MemoryStorage instance
func NewMemoryStorage(clock clockwork.Clock, log Log) *MemoryStorage {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &MemoryStorage{
		sessions: make(map[string]*session),
		clock:    clock,
		log:      log,
	}
}

// Get reads key and counts as activity on the session.
func (ms *MemoryStorage) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	s, ok := ms.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastAccess = ms.clock.Now()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (ms *MemoryStorage) Set(_ context.Context, sessionID, key string, value []byte) error {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	s, ok := ms.sessions[sessionID]
	if !ok {
		s = &session{values: make(map[string][]byte)}
		ms.sessions[sessionID] = s
	}

	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	s.lastAccess = ms.clock.Now()
	return nil
}

func (ms *MemoryStorage) Purge(_ context.Context, olderThan time.Time) (int, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	purged := 0
	for id, s := range ms.sessions {
		if s.lastAccess.Before(olderThan) {
			delete(ms.sessions, id)
			purged++
		}
	}

	if purged > 0 {
		ms.log.Info("Purged idle sessions", zap.Int("count", purged), zap.Int("remaining", len(ms.sessions)))
	}
	return purged, nil
}

// Len reports the number of live sessions.
func (ms *MemoryStorage) Len() int {
	ms.mx.RLock()
	defer ms.mx.RUnlock()
	return len(ms.sessions)
}

// Sessions lists the ids of live sessions in no particular order.
func (ms *MemoryStorage) Sessions() []string {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	ids := make([]string, 0, len(ms.sessions))
	for id := range ms.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (ms *MemoryStorage) Ping(context.Context) bool {
	return true
}

func (ms *MemoryStorage) Close() bool {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	ms.sessions = make(map[string]*session)
	ms.log.Info("Memory storage released")
	return true
}
