package translate

import (
	"strings"
	"sync"
)

// Cache maps field names to translated labels. It is safe for concurrent use
// and is owned by whoever creates it; there is no package-level instance.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// CacheKey normalizes a field name for lookup
func CacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Init replaces the cache contents with the given entries. Keys are
// normalized.
func (c *Cache) Init(entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]string, len(entries))
	for k, v := range entries {
		c.entries[CacheKey(k)] = v
	}
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Get returns the cached label for a name
func (c *Cache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	label, ok := c.entries[CacheKey(name)]
	return label, ok
}

// Put stores the label for a name
func (c *Cache) Put(name, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	c.entries[CacheKey(name)] = label
}

// Len returns the number of cached labels
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the cache contents
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
