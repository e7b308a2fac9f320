// Package sessionstore keeps booth sessions between requests, either in
// process or in Redis.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"pollbooth/internal/verification"
	"pollbooth/pkg/platform/sentinel"
)

var (
	_ verification.SessionStore = (*InMemory)(nil)
	_ verification.SessionStore = (*RedisStore)(nil)
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 12 * time.Hour

type memoryEntry struct {
	session   *verification.Session
	expiresAt time.Time
}

// InMemory stores sessions in a map. Expiry is measured from the last Create
// or Update; reads do not extend it. An expired session reports
// sentinel.ErrExpired until it is purged or updated.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]memoryEntry
	ttl      time.Duration
	clock    func() time.Time
}

type MemoryOption func(*InMemory)

func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(ttl time.Duration, opts ...MemoryOption) *InMemory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &InMemory{
		sessions: make(map[uuid.UUID]memoryEntry),
		ttl:      ttl,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, session *verification.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.sessions[session.ID] = memoryEntry{session: session.Clone(), expiresAt: s.clock().Add(s.ttl)}
	return nil
}

func (s *InMemory) Find(_ context.Context, id uuid.UUID) (*verification.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !s.clock().Before(entry.expiresAt) {
		return nil, sentinel.ErrExpired
	}
	return entry.session.Clone(), nil
}

func (s *InMemory) Update(_ context.Context, session *verification.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[session.ID]
	now := s.clock()
	if !ok {
		return sentinel.ErrNotFound
	}
	if !now.Before(entry.expiresAt) {
		delete(s.sessions, session.ID)
		return sentinel.ErrExpired
	}
	s.sessions[session.ID] = memoryEntry{session: session.Clone(), expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// PurgeExpired drops expired sessions and reports how many were removed.
func (s *InMemory) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	removed := 0
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
