package manifest

import "sync"

// Cache memoizes parsed manifests per store path for the lifetime of a
// resolver instance. A single loader runs for any
// given path even under concurrent GetOrLoad calls.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Manifest
	loading sync.Map // path -> *cacheEntry
}

type cacheEntry struct {
	manifest *Manifest
	err      error
	once     sync.Once
}

// NewCache creates an empty manifest cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Manifest)}
}

// Get retrieves a cached manifest by path.
func (c *Cache) Get(path string) (*Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[path]
	return m, ok
}

// Set stores a parsed manifest.
func (c *Cache) Set(path string, m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = m
}

// Invalidate drops a cached manifest and any in-flight load for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
	c.loading.Delete(path)
}

// GetOrLoad returns the cached manifest for path, loading it at most once
// even under concurrent calls for the same path.
func (c *Cache) GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error) {
	c.mu.RLock()
	if m, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	actual, _ := c.loading.LoadOrStore(path, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.manifest, entry.err = loader()
		if entry.err == nil {
			c.mu.Lock()
			c.entries[path] = entry.manifest
			c.mu.Unlock()
		}
	})

	return entry.manifest, entry.err
}
