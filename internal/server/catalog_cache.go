package server

import (
	"sync"
	"time"
)

const publicCatalogTTL = 30 * time.Second

// ttlCache keeps public catalog listings briefly so storefront traffic does not hit the database on every page.
type ttlCache[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]ttlCacheEntry[T]
}

type ttlCacheEntry[T any] struct {
	expiresAt time.Time
	value     []T
}

func newTTLCache[T any](ttl time.Duration, now func() time.Time) *ttlCache[T] {
	if now == nil {
		now = time.Now
	}
	return &ttlCache[T]{
		ttl:   ttl,
		now:   now,
		items: make(map[string]ttlCacheEntry[T]),
	}
}

func (c *ttlCache[T]) Get(key string) ([]T, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return append([]T(nil), entry.value...), true
}

func (c *ttlCache[T]) Set(key string, value []T) {
	if c == nil || key == "" {
		return
	}
	cloned := append([]T(nil), value...)
	c.mu.Lock()
	c.items[key] = ttlCacheEntry[T]{
		expiresAt: c.now().Add(c.ttl),
		value:     cloned,
	}
	c.mu.Unlock()
}

// Invalidate drops every entry; catalog writes call it.
func (c *ttlCache[T]) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[string]ttlCacheEntry[T])
	c.mu.Unlock()
}
