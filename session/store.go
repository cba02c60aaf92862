// Package session provides conversation history storage keyed by session id.
// The in-memory implementation is process local: suitable for a single
// server instance, tests and demos. Durable history across restarts is out
// of scope.
package session

import (
	"sync"

	"github.com/skylightai/skylight/core"
)

// Session holds one conversation's ordered content history.
type Session struct {
	ID       string
	Contents []core.Content
}

// Clone returns a deep-enough copy: the content slice is copied so callers
// cannot mutate stored history through the returned value.
func (s *Session) Clone() *Session {
	return &Session{
		ID:       s.ID,
		Contents: append([]core.Content(nil), s.Contents...),
	}
}

// InMemoryStore is a volatile session store backed by a process-local map.
// It is safe for concurrent access; each returned session is cloned to
// prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	return sess.Clone(), nil
}

// Append adds a content block to an existing or newly created session.
func (s *InMemoryStore) Append(sessionID string, c core.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	sess.Contents = append(sess.Contents, c)
	return nil
}

// History returns a clone of the session's ordered content history.
func (s *InMemoryStore) History(sessionID string) ([]core.Content, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Contents, nil
}

// createLocked allocates and stores a new session; caller must hold the
// write lock.
func (s *InMemoryStore) createLocked(sessionID string) *Session {
	sess := &Session{ID: sessionID}
	s.sessions[sessionID] = sess
	return sess
}
