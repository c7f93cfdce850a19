package search

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// cacheEntry is a cached search response with expiration
type cacheEntry struct {
	key       string
	response  *Response
	expiresAt time.Time
}

// responseCache is a thread-safe LRU cache with TTL support
type responseCache struct {
	mu           sync.Mutex
	capacity     int
	ttl          time.Duration
	items        map[string]*list.Element
	evictionList *list.List
}

func newResponseCache(capacity int, ttl time.Duration) *responseCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &responseCache{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[string]*list.Element, capacity),
		evictionList: list.New(),
	}
}

func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[key]
	if !found {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}

	c.evictionList.MoveToFront(elem)
	return entry.response, true
}

func (c *responseCache) set(key string, response *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, found := c.items[key]; found {
		c.evictionList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.response = response
		entry.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&cacheEntry{key: key, response: response, expiresAt: expiresAt})
	c.items[key] = elem

	if c.evictionList.Len() > c.capacity {
		if oldest := c.evictionList.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictionList.Len()
}

func (c *responseCache) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}

// Searcher runs a single search. Provider and Client satisfy it.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) *Response
}

// CachedProvider memoizes successful searches of the wrapped searcher.
// Failed responses are never cached.
type CachedProvider struct {
	inner Searcher
	cache *responseCache
}

// NewCachedProvider wraps s with an LRU cache of the given size and TTL
func NewCachedProvider(s Searcher, capacity int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: s,
		cache: newResponseCache(capacity, ttl),
	}
}

// Search returns a cached response when a fresh one exists
func (c *CachedProvider) Search(ctx context.Context, query string, opts Options) *Response {
	key := fmt.Sprintf("%s|%d|%s|%s|%s", query, opts.Count, opts.Freshness, opts.Country, opts.SearchLang)
	if resp, ok := c.cache.get(key); ok {
		return resp
	}

	resp := c.inner.Search(ctx, query, opts)
	if resp != nil && resp.Success {
		c.cache.set(key, resp)
	}
	return resp
}

// Len returns the number of cached responses
func (c *CachedProvider) Len() int {
	return c.cache.len()
}
