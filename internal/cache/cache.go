// Package cache holds the read-through caches behind the public API. Each
// cache carries tags; invalidating a tag through the Registry purges every
// cache carrying it, locally and on every replica listening on the Bus.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a typed in-memory store with a fixed TTL. A zero TTL never expires.
type Cache[K comparable, V any] struct {
	name string
	ttl  time.Duration
	tags []string
	now  func() time.Time

	mu      sync.RWMutex
	entries map[K]entry[V]
	epoch   uint64
}

// New creates a cache named name whose entries live for ttl.
func New[K comparable, V any](name string, ttl time.Duration, tags ...string) *Cache[K, V] {
	return &Cache[K, V]{
		name:    name,
		ttl:     ttl,
		tags:    tags,
		now:     time.Now,
		entries: make(map[K]entry[V]),
	}
}

func (c *Cache[K, V]) Name() string   { return c.name }
func (c *Cache[K, V]) Tags() []string { return c.tags }

// Get returns the live value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, restarting its TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.expiry()}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// load runs without the lock held. A result loaded across a Purge is
// returned to the caller but not cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.entries[key] = entry[V]{value: v, expiresAt: c.expiry()}
	}
	c.mu.Unlock()
	return v, nil
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
	c.epoch++
}

// Sweep removes expired entries and reports how many went.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}
