package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds independent sessions keyed by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers s and returns its id.
func (st *Store) Add(s *Session) uuid.UUID {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID()] = s
	return s.ID()
}

// Get looks up a session.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove cancels the session's attempt in flight and forgets it.
func (st *Store) Remove(id uuid.UUID) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Cancel()
	}
	return ok
}

// Len returns the number of sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// CancelAll stops every attempt in flight.
func (st *Store) CancelAll() {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, s := range st.sessions {
		s.Cancel()
	}
}
