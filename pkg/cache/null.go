package cache

import (
	"context"
	"time"
)

// NullCache is a no-op cache that never stores anything.
// Useful for testing or when caching should be disabled.
type NullCache[K comparable, V any] struct{}

// NewNullCache creates a null cache.
func NewNullCache[K comparable, V any]() Cache[K, V] {
	return &NullCache[K, V]{}
}

// Get always returns a cache miss.
func (c *NullCache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	return zero, false, nil
}

// Set does nothing.
func (c *NullCache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache[K, V]) Delete(ctx context.Context, key K) error {
	return nil
}

// Close does nothing.
func (c *NullCache[K, V]) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache[string, []byte] = (*NullCache[string, []byte])(nil)
