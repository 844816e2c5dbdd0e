package classfile

import (
	"sync"

	"war-api-analyzer/internal/domain"
)

type cacheKey struct {
	origin domain.Origin
	path   string
}

// Cache is a per-run decode cache keyed by (origin, entry path). It is
// safe for concurrent readers and writers; Clear drops everything at run
// teardown.
type Cache struct {
	mu      sync.RWMutex
	classes map[cacheKey]*Class
}

// NewCache creates an empty decode cache
func NewCache() *Cache {
	return &Cache{classes: make(map[cacheKey]*Class)}
}

// Get returns a previously decoded class for the entry, if any.
func (c *Cache) Get(origin domain.Origin, path string) (*Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[cacheKey{origin: origin, path: path}]
	return class, ok
}

// Put stores a decoded class for the entry.
func (c *Cache) Put(origin domain.Origin, path string, class *Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[cacheKey{origin: origin, path: path}] = class
}

// Len returns the number of cached classes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = make(map[cacheKey]*Class)
}
