// Package lfu provides a thread-safe LFU (Least Frequently Used) cache implementation.
//
// # When to Use LFU
//
// Use LFU when access frequency is a better predictor of future access than
// recency. Unlike LRU, a hot item accessed many times stays protected even
// if it hasn't been touched in a while; a cold item that was only ever
// touched once is the first to go. Good fits:
//   - Caches where a small set of keys dominate total traffic (power-law
//     access distributions)
//   - Workloads where a burst of one-off lookups shouldn't evict genuinely
//     popular entries
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// Get/Set/Delete are O(log d) where d is the number of distinct use-counts
// currently present, dominated by the frequency ordering lookup.
package lfu

import (
	"container/list"

	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/internal/ordered"
	"github.com/jbcache/cappuccino/policy"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	useCount int64
	freqElem *list.Element
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

// Cache is a thread-safe LFU (Least Frequently Used) cache.
//
// Every entry carries a use count, starting at 1 on insert and incremented
// on every non-peeking find or update. Eviction always removes an entry with
// the smallest use count currently present.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity uint64
	items    map[K]*entry[K, V]
	freq     *ordered.Index[*entry[K, V]]
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

	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], hint),
		freq:     ordered.New[*entry[K, V]](),
		mu:       mu,
	}
}

// New creates a new thread-safe LFU cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates an LFU cache with no internal locking.
func NewUnsafe[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, lock.NoOp{}, opts)
}

// Set adds or updates a key-value pair using the insert_or_update mode. It
// reports false only when the cache has zero capacity. Updating an existing key counts as a use, same
// as the original's do_update -> do_access chain.
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
	if e, ok := c.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		e.value = value
		c.touch(e)

		return true
	}

	if !mode.InsertAllowed() {
		return false
	}

	if uint64(len(c.items)) >= c.capacity {
		c.prune()
	}

	if c.capacity == 0 {
		return false
	}

	e := &entry[K, V]{key: key, value: value, useCount: 1}
	e.freqElem = c.freq.Insert(1, e)
	c.items[key] = e

	return true
}

// touch increments an entry's use count and relocates it in the frequency
// ordering. Must be called with the lock held.
func (c *Cache[K, V]) touch(e *entry[K, V]) {
	c.freq.Remove(e.useCount, e.freqElem)
	e.useCount++
	e.freqElem = c.freq.Insert(e.useCount, e)
}

// prune evicts the entry with the smallest use count. Must be called with
// the lock held.
func (c *Cache[K, V]) prune() {
	if len(c.items) == 0 {
		return
	}

	_, victim, ok := c.freq.Min()
	if !ok {
		return
	}

	c.freq.Remove(victim.useCount, victim.freqElem)
	delete(c.items, victim.key)
}

// Get retrieves a value from the cache, counting as a use.
//
// Use [Cache.Peek] if you need to check a value without affecting its use count.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.touch(e)

		return e.value, true
	}

	var v V

	return v, false
}

// GetWithUseCount retrieves a value and its current use count, counting as a use.
func (c *Cache[K, V]) GetWithUseCount(key K) (V, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.touch(e)

		return e.value, e.useCount, true
	}

	var v V

	return v, 0, false
}

// PeekWithUseCount retrieves a value and its current use count without
// counting as a use.
func (c *Cache[K, V]) PeekWithUseCount(key K) (V, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		return e.value, e.useCount, true
	}

	var v V

	return v, 0, false
}

// GetRange looks up every key under a single lock acquisition, counting each
// found key as a use.
func (c *Cache[K, V]) GetRange(keys []K) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if e, ok := c.items[k]; ok {
			c.touch(e)
			out = append(out, Result[K, V]{Key: k, Value: e.value, Found: true})
		} else {
			out = append(out, Result[K, V]{Key: k})
		}
	}

	return out
}

// Peek retrieves a value without counting it as a use.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		return e.value, true
	}

	var v V

	return v, false
}

// PeekRange looks up every key under a single lock acquisition without
// counting any as a use.
func (c *Cache[K, V]) PeekRange(keys []K) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if e, ok := c.items[k]; ok {
			out = append(out, Result[K, V]{Key: k, Value: e.value, Found: true})
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

	return c.doDelete(key)
}

func (c *Cache[K, V]) doDelete(key K) bool {
	e, ok := c.items[key]
	if !ok {
		return false
	}

	c.freq.Remove(e.useCount, e.freqElem)
	delete(c.items, key)

	return true
}

// DeleteRange removes every key under a single lock acquisition, returning
// the number actually removed.
func (c *Cache[K, V]) DeleteRange(keys []K) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, k := range keys {
		if c.doDelete(k) {
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

	c.items = make(map[K]*entry[K, V], len(c.items))
	c.freq = ordered.New[*entry[K, V]]()
}
