// Package cache provides the bounded, expiring caches used for ranking
// verdicts and site hints, plus the keys they are addressed by.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a size-bounded LRU whose entries also expire after a fixed TTL.
// Expired entries are dropped lazily on Get and swept on every Put; there is
// no background goroutine. All methods are safe for concurrent use.
type TTLCache[V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// Option customizes a TTLCache.
type Option[V any] func(*TTLCache[V])

// WithClock overrides time.Now, mainly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) { c.now = now }
}

// New returns a cache holding at most capacity entries for ttl each.
// Non-positive capacity is treated as 1.
func New[V any](capacity int, ttl time.Duration, opts ...Option[V]) *TTLCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	l, err := simplelru.NewLRU[string, entry[V]](capacity, nil)
	if err != nil {
		// only returned for non-positive sizes, excluded above
		panic(err)
	}
	c := &TTLCache[V]{lru: l, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key and marks it most recently used.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, sweeping expired entries first. When the cache
// is full the least recently used entry is evicted.
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)
	c.lru.Add(key, entry[V]{value: value, expires: now.Add(c.ttl)})
}

// Delete removes key if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
}

// Sweep drops every expired entry and returns how many were removed.
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Len counts stored entries, including expired ones not yet swept.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// TTL returns the configured lifetime.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

func (c *TTLCache[V]) sweepLocked(now time.Time) int {
	removed := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && !now.Before(e.expires) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}
