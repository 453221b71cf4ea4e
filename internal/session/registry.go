package session

import (
	"log"
	"sync"
	"time"
)

// Registry owns all live sessions, keyed by session ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it with params when it
// does not exist yet. created reports which happened.
func (r *Registry) GetOrCreate(id string, params Params) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s = newSession(id, params)
	r.sessions[id] = s
	log.Printf("[Session] created %s (conversation %s)", id, s.conversationID)
	return s, true
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove drops the session for id. It returns the removed session, or nil.
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	log.Printf("[Session] closed %s", id)
	return s
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// SweepIdle removes sessions idle longer than maxIdle and returns their
// IDs. A busy session is never swept, however long it has been idle.
func (r *Registry) SweepIdle(maxIdle time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, s := range r.sessions {
		if s.Busy() {
			continue
		}
		if s.IdleFor() > maxIdle {
			delete(r.sessions, id)
			removed = append(removed, id)
			log.Printf("[Session] swept idle session %s", id)
		}
	}
	return removed
}
