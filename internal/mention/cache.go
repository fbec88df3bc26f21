package mention

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recent Details results keyed by case-folded person name.
// Any diary or archive mutation must call InvalidateAll.
type Cache struct {
	lru *lru.Cache[string, *Details]
}

// NewCache creates a cache holding at most size entries (minimum 1).
func NewCache(size int) (*Cache, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, *Details](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached details for name.
func (c *Cache) Get(name string) (*Details, bool) {
	return c.lru.Get(cacheKey(name))
}

// Add stores details under name.
func (c *Cache) Add(name string, d *Details) {
	c.lru.Add(cacheKey(name), d)
}

// InvalidateAll drops every cached result.
func (c *Cache) InvalidateAll() {
	c.lru.Purge()
}

// Len reports the number of cached results.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
