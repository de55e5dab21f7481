// Package cache holds the Redis-backed fast path for webhook idempotency.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/devstudio/backoffice/internal/config"
)

// IdempotencyStore claims keys so a unit of work runs once.
type IdempotencyStore interface {
	// Claim returns true if the key was free and is now held for ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a key after a failed attempt.
	Release(ctx context.Context, key string) error
}

// RedisStore implements IdempotencyStore with SETNX.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, prefix: "backoffice:"}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), time.Now().Unix(), ttl).Result()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NopStore always grants the claim; the database guard still applies.
type NopStore struct{}

func (NopStore) Claim(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NopStore) Release(context.Context, string) error                      { return nil }

// WebhookKey is the idempotency key of a processor event.
func WebhookKey(eventID string) string {
	return "webhook:" + eventID
}
