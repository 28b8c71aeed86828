package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps entries in a map guarded by a read/write mutex.
// Expired entries are dropped lazily on access.
type MemoryCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]memoryEntry[V]
	now     func() time.Time
}

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache[K comparable, V any]() *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		entries: make(map[K]memoryEntry[V]),
		now:     time.Now,
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores a value in the cache.
func (c *MemoryCache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	e := memoryEntry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache[K, V]) Delete(ctx context.Context, key K) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops every entry.
func (c *MemoryCache[K, V]) Close() error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

// Ensure MemoryCache implements Cache.
var _ Cache[string, []byte] = (*MemoryCache[string, []byte])(nil)
