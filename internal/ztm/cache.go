package ztm

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache keys. The stop directory and the all-stops bundle are singletons;
// single-stop bundles are keyed by stop id.
const (
	stopsKey         = "stops"
	allDeparturesKey = "departures:all"
)

func departuresKey(stopID int) string {
	return "departures:" + strconv.Itoa(stopID)
}

// FeedCache holds validated upstream payloads until their TTL passes.
// Entries are replaced, never merged. Concurrent misses for the same key may
// both fetch upstream; the last write wins.
type FeedCache struct {
	items *cache.Cache
}

// NewFeedCache returns an empty cache. cleanupInterval controls how often
// expired entries are purged from memory; reads ignore expired entries
// regardless.
func NewFeedCache(cleanupInterval time.Duration) *FeedCache {
	return &FeedCache{items: cache.New(cache.NoExpiration, cleanupInterval)}
}

// set stores v under key for ttl. A non-positive ttl disables caching for
// that call.
func (c *FeedCache) set(key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.items.Set(key, v, ttl)
}

// Flush drops every entry.
func (c *FeedCache) Flush() {
	c.items.Flush()
}

// Len reports the number of stored entries, including expired ones not yet
// purged.
func (c *FeedCache) Len() int {
	return c.items.ItemCount()
}

// lookup returns the live entry for key, if any, as a T.
func lookup[T any](c *FeedCache, key string) (T, bool) {
	var zero T
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
