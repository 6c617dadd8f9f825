package search

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// cacheSize bounds distinct cached queries.
	cacheSize = 100

	// cacheTTL expires a cached result set even without index writes, a
	// backstop for changes the watcher never saw.
	cacheTTL = 5 * time.Minute
)

// Cache memoizes ranked result sets per normalized query. Any index write
// purges it wholesale; per-entry invalidation is not worth the bookkeeping
// at completion-query sizes.
type Cache struct {
	lru *expirable.LRU[string, []Result]
}

func NewCache() *Cache {
	return &Cache{lru: expirable.NewLRU[string, []Result](cacheSize, nil, cacheTTL)}
}

func (c *Cache) Get(key string) ([]Result, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Put(key string, results []Result) {
	c.lru.Add(key, results)
}

// Purge drops every cached result set.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len reports how many result sets are currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
