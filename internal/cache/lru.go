// Package cache provides a bounded LRU used to memoize git lookups.
package cache

import (
	"sync"
	"sync/atomic"
)

// LRU is a thread-safe least recently used cache bounded by entry count and,
// optionally, by total value size.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*lruEntry[K, V]
	head    *lruEntry[K, V] // Most recently used.
	tail    *lruEntry[K, V] // Least recently used.

	maxEntries int
	maxSize    int64
	curSize    int64
	sizeFunc   func(V) int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	size  int64
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithMaxBytes bounds the total size of cached values as measured by sizeFunc.
func WithMaxBytes[K comparable, V any](maxBytes int64, sizeFunc func(V) int64) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.maxSize = maxBytes
		c.sizeFunc = sizeFunc
	}
}

// NewLRU creates a cache holding at most maxEntries values. A non-positive
// maxEntries disables caching: every Get misses.
func NewLRU[K comparable, V any](maxEntries int, opts ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		entries:    make(map[K]*lruEntry[K, V]),
		maxEntries: maxEntries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, evicting least recently used entries to make room.
// Values larger than the whole size budget are not stored.
func (c *LRU[K, V]) Put(key K, value V) {
	if c.maxEntries <= 0 {
		return
	}

	var size int64
	if c.sizeFunc != nil {
		size = c.sizeFunc(value)
		if c.maxSize > 0 && size > c.maxSize {
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.curSize += size - entry.size
		entry.value = value
		entry.size = size
		c.moveToFront(entry)
		c.evict()

		return
	}

	entry := &lruEntry[K, V]{key: key, value: value, size: size}
	c.entries[key] = entry
	c.curSize += size
	c.addToFront(entry)
	c.evict()
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors are returned as is and not cached.
func (c *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	c.Put(key, value)

	return value, nil
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns a snapshot of cache metrics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.curSize,
	}
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
}

// HitRate returns the hit rate in [0, 1].
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (c *LRU[K, V]) evict() {
	for c.tail != nil && (len(c.entries) > c.maxEntries || (c.maxSize > 0 && c.curSize > c.maxSize)) {
		victim := c.tail
		c.removeFromList(victim)
		delete(c.entries, victim.key)
		c.curSize -= victim.size
	}
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[K, V]) removeFromList(entry *lruEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}
