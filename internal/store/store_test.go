package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/deskpilot-dev/deskpilot/internal/session"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStoreFromClient(client, "", 0),
	}
}

func TestSaveAndLoadHistory(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				_ = s.Close()
			}()
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				err := s.SaveTurn(ctx, "sess-1", "conv-1", session.Turn{
					Transcription: fmt.Sprintf("q%d", i),
					Response:      fmt.Sprintf("a%d", i),
					Timestamp:     time.Unix(int64(i), 0).UTC(),
				})
				if err != nil {
					t.Fatalf("SaveTurn: %v", err)
				}
			}

			turns, err := s.History(ctx, "conv-1")
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(turns) != 3 {
				t.Fatalf("len = %d, want 3", len(turns))
			}
			if turns[0].Transcription != "q0" || turns[2].Response != "a2" {
				t.Errorf("turns out of order: %+v", turns)
			}
		})
	}
}

func TestHistoryTrimmedToCap(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				_ = s.Close()
			}()
			ctx := context.Background()

			for i := 0; i < maxStoredTurns+10; i++ {
				if err := s.SaveTurn(ctx, "sess-1", "conv-1", session.Turn{
					Transcription: fmt.Sprintf("q%d", i),
				}); err != nil {
					t.Fatalf("SaveTurn: %v", err)
				}
			}

			turns, err := s.History(ctx, "conv-1")
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(turns) != maxStoredTurns {
				t.Fatalf("len = %d, want %d", len(turns), maxStoredTurns)
			}
			if turns[0].Transcription != "q10" {
				t.Errorf("oldest kept turn = %q, want q10", turns[0].Transcription)
			}
		})
	}
}

func TestHistoryNotFound(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				_ = s.Close()
			}()
			if _, err := s.History(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				_ = s.Close()
			}()
			ctx := context.Background()

			if err := s.SaveTurn(ctx, "sess-1", "conv-1", session.Turn{Transcription: "q"}); err != nil {
				t.Fatalf("SaveTurn: %v", err)
			}
			if err := s.DeleteConversation(ctx, "conv-1"); err != nil {
				t.Fatalf("DeleteConversation: %v", err)
			}
			if _, err := s.History(ctx, "conv-1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("history after delete: %v", err)
			}
		})
	}
}

func TestClosedStore(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Close()
			if err := s.SaveTurn(context.Background(), "s", "c", session.Turn{}); !errors.Is(err, ErrClosed) {
				t.Errorf("SaveTurn on closed store: %v", err)
			}
		})
	}
}

func TestRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "", time.Minute)
	defer func() {
		_ = s.Close()
	}()
	ctx := context.Background()

	if err := s.SaveTurn(ctx, "sess-1", "conv-ttl", session.Turn{Transcription: "q"}); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.History(ctx, "conv-ttl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry after TTL, got %v", err)
	}
}
