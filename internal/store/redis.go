package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskpilot-dev/deskpilot/internal/session"
)

// RedisStore persists conversation logs in Redis, for setups where the
// assistant core runs apart from the UI host.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix is the key prefix for conversation keys (default: "deskpilot:conversation:").
	Prefix string
	// TTL expires idle conversations (0 = never expire).
	TTL time.Duration
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client. Useful for testing
// with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "deskpilot:conversation:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) turnsKey(conversationID string) string {
	return r.prefix + "turns:" + conversationID
}

func (r *RedisStore) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

func (r *RedisStore) SaveTurn(ctx context.Context, sessionKey, conversationID string, turn session.Turn) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := r.turnsKey(conversationID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -int64(maxStoredTurns), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, conversationID string) ([]session.Turn, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	raw, err := r.client.LRange(ctx, r.turnsKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	turns := make([]session.Turn, 0, len(raw))
	for _, item := range raw {
		var t session.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisStore) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.turnsKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}
