package geocode

import (
	"context"
	"fmt"
	"sync"
)

// Resolver is the geocoding capability consumed by the weather resolver.
type Resolver interface {
	ResolveByName(ctx context.Context, name string) (*Location, error)
	ResolveByCoordinates(ctx context.Context, lat, lon float64) (*Location, error)
}

// CachedResolver wraps a Resolver with an in-memory LRU cache. Locations are
// immutable once resolved, so cached values are shared safely.
type CachedResolver struct {
	inner Resolver
	cache *lruCache
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner Resolver, maxEntries int) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedResolver) ResolveByName(ctx context.Context, name string) (*Location, error) {
	key := "name:" + name
	if loc, ok := c.cache.get(key); ok {
		return loc, nil
	}
	loc, err := c.inner.ResolveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, loc)
	return loc, nil
}

func (c *CachedResolver) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*Location, error) {
	key := fmt.Sprintf("coords:%.4f,%.4f", lat, lon)
	if loc, ok := c.cache.get(key); ok {
		return loc, nil
	}
	loc, err := c.inner.ResolveByCoordinates(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	// Only cache hits. A nil result is the silent degraded path and may be a
	// transient provider hiccup worth retrying next time.
	if loc != nil {
		c.cache.put(key, loc)
	}
	return loc, nil
}

// lruCache is a simple thread-safe LRU cache for resolved locations.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *Location
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	c.remove(evicted)
	delete(c.entries, evicted.key)
}
