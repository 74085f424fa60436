package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "agent-neo/backend/pkg/errors"
)

const keyPrefix = "persistence:"

// RedisTracker shares statuses between server replicas.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Tracker = (*RedisTracker)(nil)

// NewRedisTracker connects and pings the server.
func NewRedisTracker(ctx context.Context, addr, password string, ttl time.Duration) (*RedisTracker, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTracker{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) Set(ctx context.Context, s Status) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return t.client.Set(ctx, keyPrefix+s.MessageID, data, t.ttl).Err()
}

func (t *RedisTracker) Get(ctx context.Context, messageID string) (Status, error) {
	data, err := t.client.Get(ctx, keyPrefix+messageID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, apperrors.NewStatusNotFound(messageID)
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read status: %w", err)
	}

	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return s, nil
}
