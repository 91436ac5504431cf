package cache

import (
	"context"
	"sync"
	"time"

	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
)

type sessionEntry struct {
	session   *inspection.Session
	expiresAt time.Time
}

// InMemorySessionStore implements inspection.SessionStore using an in-memory map.
// Sessions expire after the TTL; a background loop sweeps expired entries.
// Suitable for single-instance deployments and testing.
type InMemorySessionStore struct {
	mu        sync.RWMutex
	entries   map[string]sessionEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySessionStore creates a store and starts its sweep loop
func NewInMemorySessionStore(ttl, sweepInterval time.Duration) *InMemorySessionStore {
	s := &InMemorySessionStore{
		entries:  make(map[string]sessionEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Get returns a copy of the session, or shared.ErrNotFound
func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*inspection.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return nil, shared.ErrNotFound
	}
	return e.session.Clone(), nil
}

// Save stores a copy of the session and refreshes its TTL
func (s *InMemorySessionStore) Save(ctx context.Context, session *inspection.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := sessionEntry{session: session.Clone()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[session.ID] = e
	return nil
}

// Delete removes a session; deleting an unknown session is not an error
func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemorySessionStore) expired(e sessionEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// Sweep removes expired sessions and returns how many were dropped
func (s *InMemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *InMemorySessionStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopChan:
			return
		}
	}
}

// Close stops the sweep loop. It is safe to call more than once.
func (s *InMemorySessionStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

var _ inspection.SessionStore = (*InMemorySessionStore)(nil)
