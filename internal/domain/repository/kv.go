package repository

import (
	"context"
	"time"
)

// KVStore defines the key-value metadata store backing the conversion cache.
// All values are small strings keyed by deterministic names; a TTL of zero
// means the key does not expire.
// Implementations should be provided by the infrastructure layer (e.g. Redis).
type KVStore interface {
	// Get retrieves a single value. ok is false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// MGet retrieves several keys in one round trip. The returned map
	// contains only the keys that were present.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)

	// Set writes a value, overwriting any previous one.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes a value only if the key does not exist. It reports
	// whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// SetBatch writes several untimed keys atomically.
	SetBatch(ctx context.Context, entries map[string]string) error
}
