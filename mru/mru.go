// Package mru provides a thread-safe MRU (Most Recently Used) cache implementation.
//
// # When to Use MRU
//
// MRU evicts the most recently used item first instead of the least recently
// used one. This inverted policy suits access patterns where the item just
// touched is the least likely to be touched again soon:
//   - Sequential scans over a dataset larger than cache capacity, where once
//     an item has been visited it won't be revisited for a long time
//   - Cyclic buffers where re-reading the newest item indicates it is now
//     "used up"
//
// # MRU vs LRU
//
// Both track the same recency ordering; they differ only in which end of the
// ordering the eviction victim comes from:
//   - LRU: least recently used item evicted
//   - MRU: most recently used item evicted
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the internal
// lock entirely for single-goroutine callers.
//
// # Performance
//
// All single-key operations are O(1).
package mru

import (
	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/policy"
)

type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// KeyValue is a convenience pairing for SetRange.
type KeyValue[K comparable, V any] struct {
	Key   K
	Value V
}

// Result is a convenience pairing for GetRange.
type Result[K comparable, V any] struct {
	Key   K
	Value V
	Found bool
}

// Cache is a thread-safe MRU (Most Recently Used) cache.
//
// Items are evicted based on access recency, same as LRU, but from the
// opposite end: the most recently accessed item is removed when the cache
// reaches capacity. Both Get and Set mark an item as "recently used",
// moving it to the front of the recency list and thus making it the next
// eviction victim.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity   uint64
	items      map[K]*node[K, V]
	head, tail *node[K, V]
}

// Option configures a Cache at construction time.
type Option[K comparable, V any] func(*config)

type config struct {
	maxLoadFactor float64
}

// WithMaxLoadFactor forwards a load-factor hint to the internal index's
// initial sizing. The default of 1.0 matches the original cappuccino default.
func WithMaxLoadFactor[K comparable, V any](f float64) Option[K, V] {
	return func(c *config) { c.maxLoadFactor = f }
}

func newCache[K comparable, V any](capacity uint64, mu lock.Locker, opts []Option[K, V]) *Cache[K, V] {
	cfg := config{maxLoadFactor: 1.0}
	for _, opt := range opts {
		opt(&cfg)
	}

	hint := capacity
	if cfg.maxLoadFactor > 0 && cfg.maxLoadFactor < 1.0 {
		hint = uint64(float64(capacity) / cfg.maxLoadFactor)
	}

	head := &node[K, V]{}
	tail := &node[K, V]{}
	head.next = tail
	tail.prev = head

	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*node[K, V], hint),
		head:     head,
		tail:     tail,
		mu:       mu,
	}
}

// New creates a new thread-safe MRU cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates an MRU cache with no internal locking.
func NewUnsafe[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, lock.NoOp{}, opts)
}

// Set adds or updates a key-value pair using the insert_or_update mode. It
// reports false only when the cache has zero capacity.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.SetWithMode(key, value, policy.InsertOrUpdate)
}

// SetWithMode adds, updates, or both, depending on mode. It reports whether
// the mutation happened.
func (c *Cache[K, V]) SetWithMode(key K, value V, mode policy.Allow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doSet(key, value, mode)
}

// SetRange applies SetWithMode for every pair under a single lock acquisition.
func (c *Cache[K, V]) SetRange(pairs []KeyValue[K, V], mode policy.Allow) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, kv := range pairs {
		if c.doSet(kv.Key, kv.Value, mode) {
			n++
		}
	}

	return n
}

func (c *Cache[K, V]) doSet(key K, value V, mode policy.Allow) bool {
	if n, ok := c.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		n.value = value
		c.moveToHead(n)

		return true
	}

	if !mode.InsertAllowed() {
		return false
	}

	if uint64(len(c.items)) >= c.capacity {
		c.evict()
	}

	if c.capacity == 0 {
		return false
	}

	n := &node[K, V]{key: key, value: value}
	c.items[key] = n
	c.addNodeToHead(n)

	return true
}

// evict removes the most-recently-used item: the one directly behind head.
// Must be called with the lock held, before the new node is inserted, so the
// node just being inserted is never the one removed.
func (c *Cache[K, V]) evict() {
	victim := c.head.next
	if victim == c.tail {
		return
	}

	c.removeNode(victim)
	delete(c.items, victim.key)
}

func (c *Cache[K, V]) moveToHead(n *node[K, V]) {
	c.removeNode(n)
	c.addNodeToHead(n)
}

func (c *Cache[K, V]) removeNode(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *Cache[K, V]) addNodeToHead(n *node[K, V]) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

// Get retrieves a value from the cache and marks it as recently used — which
// under MRU makes it the next eviction candidate rather than the safest one.
//
// Use [Cache.Peek] if you need to check a value without affecting eviction order.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		c.moveToHead(n)

		return n.value, true
	}

	var v V

	return v, false
}

// GetRange looks up every key under a single lock acquisition, marking each
// found key as recently used.
func (c *Cache[K, V]) GetRange(keys []K) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if n, ok := c.items[k]; ok {
			c.moveToHead(n)
			out = append(out, Result[K, V]{Key: k, Value: n.value, Found: true})
		} else {
			out = append(out, Result[K, V]{Key: k})
		}
	}

	return out
}

// Peek retrieves a value without marking it as recently used.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		return n.value, true
	}

	var v V

	return v, false
}

// PeekRange looks up every key under a single lock acquisition without
// affecting recency.
func (c *Cache[K, V]) PeekRange(keys []K) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if n, ok := c.items[k]; ok {
			out = append(out, Result[K, V]{Key: k, Value: n.value, Found: true})
		} else {
			out = append(out, Result[K, V]{Key: k})
		}
	}

	return out
}

// Delete removes a key from the cache.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		c.removeNode(n)
		delete(c.items, key)

		return true
	}

	return false
}

// DeleteRange removes every key under a single lock acquisition, returning
// the number actually removed.
func (c *Cache[K, V]) DeleteRange(keys []K) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, k := range keys {
		if item, ok := c.items[k]; ok {
			c.removeNode(item)
			delete(c.items, k)

			n++
		}
	}

	return n
}

// Len returns the current number of items in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Capacity returns the maximum number of items this cache can hold.
func (c *Cache[K, V]) Capacity() uint64 {
	return c.capacity
}

// Empty reports whether the cache currently holds no items.
func (c *Cache[K, V]) Empty() bool {
	return c.Len() == 0
}

// Clear removes every item from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*node[K, V], len(c.items))
	c.head.next = c.tail
	c.tail.prev = c.head
}
