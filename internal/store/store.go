// Package store persists accepted conversation turns outside the live
// session, so a client can reload history after a restart.
package store

import (
	"context"
	"errors"

	"github.com/deskpilot-dev/deskpilot/internal/session"
)

// maxStoredTurns bounds the persisted log per conversation.
const maxStoredTurns = 50

// ErrClosed is returned by any operation on a closed store.
var ErrClosed = errors.New("store: closed")

// ErrNotFound is returned when a conversation has no stored turns.
var ErrNotFound = errors.New("store: conversation not found")

// Store is the durable sink for conversation turns.
type Store interface {
	// SaveTurn appends one turn to a conversation's log, trimming the
	// oldest entries past the cap.
	SaveTurn(ctx context.Context, sessionKey, conversationID string, turn session.Turn) error

	// History returns a conversation's stored turns, oldest first.
	History(ctx context.Context, conversationID string) ([]session.Turn, error)

	// DeleteConversation drops a conversation's log.
	DeleteConversation(ctx context.Context, conversationID string) error

	Close() error
}
