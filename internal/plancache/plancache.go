// Package plancache caches compiled expressions by their text.
package plancache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is an LRU cache of compiled values keyed by expression text. A nil
// *Cache is a valid cache that holds nothing. Safe for concurrent use.
type Cache[V any] struct {
	lru *lru.Cache[string, V]
}

// New creates a cache holding at most size entries. If size is not positive,
// the result is nil, which caches nothing.
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		// lru.New fails only for non-positive sizes.
		panic(err)
	}
	return &Cache[V]{lru: c}
}

// Get retrieves the value for key, marking it recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(key)
}

// Add inserts or replaces the value for key, evicting the least recently
// used entry if the cache is full.
func (c *Cache[V]) Add(key string, v V) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

// GetOrCompile returns the cached value for key, or else calls compile and
// caches its result. Errors are not cached. The second result reports
// whether the value came from the cache.
func (c *Cache[V]) GetOrCompile(key string, compile func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := compile()
	if err != nil {
		return v, false, err
	}
	c.Add(key, v)
	return v, false, nil
}

// Purge removes every entry.
func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len returns the number of entries in the cache.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
