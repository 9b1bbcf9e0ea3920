package port

import (
	"context"
	"time"
)

// Cache is the minimal key-value contract the chat service needs: the only
// cached artifact today is the per-user conversation summary list, which is
// written on read paths and invalidated on every message mutation.
// Implementations must be concurrency-safe and context-aware.
type Cache interface {
	// Get fetches the value for key, returning ErrMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns how many were removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can tell misses
// apart from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }

// SummaryKey builds the cache key for a user's conversation summary list.
func SummaryKey(userID string) string { return "chat:summaries:" + userID }
