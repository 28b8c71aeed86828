// Package cache provides small typed caches used to memoize expensive,
// deterministic computations such as route resolution.
//
// All implementations are safe for concurrent use. Values are returned as
// stored; callers that share cached slices or maps must treat them as
// read-only.
package cache

import (
	"context"
	"time"
)

// Cache is a typed key/value store with optional expiry.
type Cache[K comparable, V any] interface {
	// Get returns the cached value and true, or the zero value and false on
	// a miss or an expired entry.
	Get(ctx context.Context, key K) (V, bool, error)

	// Set stores value under key. A ttl of zero never expires.
	Set(ctx context.Context, key K, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key K) error

	// Close releases resources held by the cache.
	Close() error
}
