package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// RedisStore implements repository.KVStore on top of Redis.
type RedisStore struct {
	client *redis.Client
}

// Compile-time verification that RedisStore implements repository.KVStore.
var _ repository.KVStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed metadata store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves a single value. ok is false on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// MGet retrieves several keys in one round trip. Absent keys are omitted
// from the result map.
func (s *RedisStore) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	result := make(map[string]string, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("redis mget: unexpected value type %T for key %s", v, keys[i])
		}
		result[keys[i]] = str
	}
	return result, nil
}

// Set writes a value, overwriting any previous one. A zero TTL means the
// key does not expire.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// SetNX writes a value only if the key does not exist.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// SetBatch writes several untimed keys in a single transactional pipeline.
func (s *RedisStore) SetBatch(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for k, v := range entries {
		pipe.Set(ctx, k, v, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline exec: %w", err)
	}
	return nil
}
