// Package lru provides a thread-safe LRU (Least Recently Used) cache implementation.
//
// # When to Use LRU
//
// Use LRU when you want to keep frequently accessed items in cache. Items that
// haven't been accessed recently are evicted first. This is ideal for:
//   - Database query caching where recent queries are likely to repeat
//   - Session storage where active sessions should stay cached
//   - Any workload with temporal locality (recent items accessed again soon)
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the internal
// lock entirely for single-goroutine callers.
//
// # Performance
//
// All single-key operations are O(1).
//
// # Example Usage
//
//	cache := lru.New[string, int](100)  // Cache up to 100 items
//	cache.Set("user:123", 42)
//	if val, ok := cache.Get("user:123"); ok {
//	    fmt.Println(val) // 42
//	}
package lru

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

// Cache is a thread-safe LRU (Least Recently Used) cache.
//
// Items are evicted based on access recency: the least recently accessed item
// is removed when the cache reaches capacity. Both Get and Set operations
// mark an item as "recently used", moving it to the front of the eviction queue.
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

// New creates a new thread-safe LRU cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates an LRU cache with no internal locking.
func NewUnsafe[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, lock.NoOp{}, opts)
}

// Set adds or updates a key-value pair using the insert_or_update mode and
// always reports success.
//
// On a cache created with [New], the operation is atomic and thread-safe.
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

	n := &node[K, V]{key: key, value: value}
	c.items[key] = n
	c.addNodeToHead(n)

	if uint64(len(c.items)) > c.capacity {
		victim := c.tail.prev
		c.removeNode(victim)
		delete(c.items, victim.key)
	}

	return true
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

// Get retrieves a value from the cache and marks it as recently used.
//
// Use [Cache.Peek] if you need to check a value without affecting
// eviction order.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		c.moveToHead(v)

		return v.value, ok
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
//
// Unlike [Cache.Get], this does not affect the eviction order.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		return v.value, ok
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
//
// Returns true if the key existed and was removed, false if the key was not found.
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
