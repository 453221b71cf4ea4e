package store

import (
	"context"
	"sync"

	"github.com/deskpilot-dev/deskpilot/internal/session"
)

// MemoryStore keeps conversation logs in process memory. It is the
// default backend for single-node desktop use.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]session.Turn
	closed        bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]session.Turn)}
}

func (m *MemoryStore) SaveTurn(ctx context.Context, sessionKey, conversationID string, turn session.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	log := append(m.conversations[conversationID], turn)
	if len(log) > maxStoredTurns {
		log = log[len(log)-maxStoredTurns:]
	}
	m.conversations[conversationID] = log
	return nil
}

func (m *MemoryStore) History(ctx context.Context, conversationID string) ([]session.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	log, ok := m.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]session.Turn, len(log))
	copy(out, log)
	return out, nil
}

func (m *MemoryStore) DeleteConversation(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.conversations, conversationID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
