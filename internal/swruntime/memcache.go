package swruntime

import (
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryCacheStorage is an in-memory CacheStorage backed by go-cache. Entries
// never expire on their own; version cutover at activate time is the only
// eviction path, matching the platform Cache API contract.
type MemoryCacheStorage struct {
	mu     sync.Mutex
	caches map[string]*memoryCache
}

// NewMemoryCacheStorage creates an empty cache storage.
func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{caches: make(map[string]*memoryCache)}
}

// Open returns the named cache, creating it on first use.
func (s *MemoryCacheStorage) Open(name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		c = &memoryCache{entries: cache.New(cache.NoExpiration, 0)}
		s.caches[name] = c
	}
	return c, nil
}

// Keys lists the names of all open caches.
func (s *MemoryCacheStorage) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	return names, nil
}

// Delete drops the named cache and all its entries.
func (s *MemoryCacheStorage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, name)
	return nil
}

type memoryCache struct {
	entries *cache.Cache
}

func (c *memoryCache) Match(key string) (*Response, bool) {
	v, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	return v.(*Response), true
}

func (c *memoryCache) Put(key string, resp *Response) {
	c.entries.Set(key, resp, cache.NoExpiration)
}
