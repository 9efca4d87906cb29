package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"campusbite/internal/config"
	"campusbite/internal/models"
)

// keyTTL keeps a claimed key long enough to cover any realistic
// client retry window.
const keyTTL = 24 * time.Hour

// Store claims checkout idempotency keys in Redis. A key can be
// claimed exactly once; replays surface ErrDuplicateRequest before
// any cart state is read.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Claim atomically claims the key for the given user. Returns
// ErrDuplicateRequest when the key was already claimed.
func (s *Store) Claim(ctx context.Context, userID, key string) error {
	redisKey := fmt.Sprintf("checkout:idempotency:%s:%s", userID, key)

	ok, err := s.client.SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339), keyTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: redis setnx failed: %v", models.ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: idempotency key already used", models.ErrDuplicateRequest)
	}

	return nil
}

// Release frees a claimed key so the client can retry after a failed
// checkout that produced no order.
func (s *Store) Release(ctx context.Context, userID, key string) error {
	redisKey := fmt.Sprintf("checkout:idempotency:%s:%s", userID, key)
	return s.client.Del(ctx, redisKey).Err()
}

// Close closes the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}
