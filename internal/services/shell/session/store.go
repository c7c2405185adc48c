package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
)

// StoreSource resolves the session stored under SessionID.
type StoreSource struct {
	Store     Store
	SessionID string
	Clock     clockwork.Clock
}

// Resolve implements Source. A missing or expired session resolves to nil
// without error.
func (s StoreSource) Resolve(ctx context.Context) (*Session, error) {
	id := strings.TrimSpace(s.SessionID)
	if id == "" || s.Store == nil {
		return nil, nil
	}
	sess, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if sess.Expired(clock.Now()) {
		return nil, nil
	}
	return &sess, nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	clock    clockwork.Clock
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore returns an empty store using clock for expiry.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, sessions: make(map[string]Session)}
}

// Get implements Store. Expired sessions are evicted on read.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if sess.Expired(s.clock.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, sess Session) error {
	if err := Validate(sess); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return nil
}

// Delete implements Store. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Validate checks the fields every Store requires.
func Validate(sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return fmt.Errorf("session user id is required")
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
