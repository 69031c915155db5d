package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps a user to at most one active Session. Starting a new
// search while one exists replaces the old one; the most recent start
// wins. The map is safe for concurrent use across users, but a single
// user's entry is only ever written from that user's worker goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

func (r *Registry) Get(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Put installs sess as the user's active session, discarding any previous
// one without notification.
func (r *Registry) Put(userID int64, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = sess
}

func (r *Registry) Remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Contains reports whether the user's active session is exactly the one
// identified by id. False when the user has no session or has since
// started a different one.
func (r *Registry) Contains(userID int64, id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return ok && s.ID == id
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
