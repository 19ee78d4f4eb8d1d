// Package tlru provides a thread-safe TLRU (Time-aware Least Recently Used)
// cache implementation.
//
// # When to Use TLRU
//
// TLRU combines a per-entry TTL with LRU recency: an expired entry is always
// preferred as the eviction victim over the least recently used one. Use it
// when entries have a natural expiration (a token, a cached API response)
// but you also want bounded memory and recency-based eviction among entries
// that haven't yet expired.
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// Get/Set/Delete are O(log d) where d is the number of distinct expiry
// instants currently present, dominated by the TTL ordering lookup.
package tlru

import (
	"container/list"
	"time"

	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/internal/ordered"
	"github.com/jbcache/cappuccino/policy"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	expireAt time.Time
	lruElem  *list.Element
	ttlElem  *list.Element
}

// KeyValue is a convenience triple for SetRange.
type KeyValue[K comparable, V any] struct {
	TTL   time.Duration
	Key   K
	Value V
}

// Result is a convenience pairing for GetRange.
type Result[K comparable, V any] struct {
	Key   K
	Value V
	Found bool
}

// Cache is a thread-safe TLRU (Time-aware Least Recently Used) cache.
//
// Every entry carries its own expiry instant, tracked in a TTL ordering
// alongside the usual recency list. Expired entries are preferred as
// eviction victims over the least recently used one: see [Cache.SetWithMode]
// for the in-place-update-of-an-expired-key behavior this implies.
//
// Expiry is lazy: nothing is reaped on a timer. An expired entry is only
// removed when a later Get, Set, or explicit [Cache.CleanExpired] call
// touches it.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity uint64
	items    map[K]*entry[K, V]
	lruList  *list.List
	ttl      *ordered.Index[*entry[K, V]]
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
		lruList:  list.New(),
		ttl:      ordered.New[*entry[K, V]](),
		mu:       mu,
	}
}

// New creates a new thread-safe TLRU cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates a TLRU cache with no internal locking.
func NewUnsafe[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, lock.NoOp{}, opts)
}

// Set adds or updates a key-value pair with the given TTL, using the
// insert_or_update mode. It reports false only when the cache has zero
// capacity.
func (c *Cache[K, V]) Set(ttl time.Duration, key K, value V) bool {
	return c.SetWithMode(ttl, key, value, policy.InsertOrUpdate)
}

// SetWithMode adds, updates, or both, depending on mode.
//
// If mode only allows insertion and key already exists but has expired, the
// insert is upgraded into an in-place update rather than rejected — the
// existing, dead entry is logically gone already.
func (c *Cache[K, V]) SetWithMode(ttl time.Duration, key K, value V, mode policy.Allow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	return c.doSet(key, value, now, now.Add(ttl), mode)
}

// SetRange applies SetWithMode for every triple under a single lock
// acquisition and a single "now" timestamp.
func (c *Cache[K, V]) SetRange(triples []KeyValue[K, V], mode policy.Allow) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0

	for _, kv := range triples {
		if c.doSet(kv.Key, kv.Value, now, now.Add(kv.TTL), mode) {
			n++
		}
	}

	return n
}

func (c *Cache[K, V]) doSet(key K, value V, now, expireAt time.Time, mode policy.Allow) bool {
	if e, ok := c.items[key]; ok {
		if mode.UpdateAllowed() {
			c.update(e, value, expireAt)

			return true
		}

		if mode.InsertAllowed() && !now.Before(e.expireAt) {
			c.update(e, value, expireAt)

			return true
		}

		return false
	}

	if !mode.InsertAllowed() {
		return false
	}

	if uint64(len(c.items)) >= c.capacity {
		c.prune(now)
	}

	if c.capacity == 0 {
		return false
	}

	e := &entry[K, V]{key: key, value: value, expireAt: expireAt}
	e.ttlElem = c.ttl.Insert(expireAt.UnixNano(), e)
	e.lruElem = c.lruList.PushFront(e)
	c.items[key] = e

	return true
}

func (c *Cache[K, V]) update(e *entry[K, V], value V, expireAt time.Time) {
	e.value = value

	c.ttl.Remove(e.expireAt.UnixNano(), e.ttlElem)
	e.expireAt = expireAt
	e.ttlElem = c.ttl.Insert(expireAt.UnixNano(), e)

	c.touch(e)
}

func (c *Cache[K, V]) touch(e *entry[K, V]) {
	c.lruList.MoveToFront(e.lruElem)
}

func (c *Cache[K, V]) erase(e *entry[K, V]) {
	c.lruList.Remove(e.lruElem)
	c.ttl.Remove(e.expireAt.UnixNano(), e.ttlElem)
	delete(c.items, e.key)
}

// prune prefers evicting an already-expired entry over the least recently
// used one. Must be called with the lock held.
func (c *Cache[K, V]) prune(now time.Time) {
	if len(c.items) == 0 {
		return
	}

	if _, victim, ok := c.ttl.Min(); ok && !now.Before(victim.expireAt) {
		c.erase(victim)

		return
	}

	if back := c.lruList.Back(); back != nil {
		c.erase(back.Value.(*entry[K, V]))
	}
}

// CleanExpired removes every currently expired entry and reports how many
// were removed. Useful to run ahead of a burst of inserts so they don't pay
// for the TTL check themselves.
func (c *Cache[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	for {
		_, victim, ok := c.ttl.Min()
		if !ok || now.Before(victim.expireAt) {
			break
		}

		c.erase(victim)

		removed++
	}

	return removed
}

// Get retrieves a value from the cache and marks it as recently used,
// unless it has already expired — in which case it is reaped and (zero, false)
// is returned.
//
// Use [Cache.Peek] if you need to check a value without affecting eviction order.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doFind(key, time.Now(), false)
}

// Peek retrieves a value without marking it as recently used. An expired
// entry is still reaped and reported as not found.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doFind(key, time.Now(), true)
}

func (c *Cache[K, V]) doFind(key K, now time.Time, peek bool) (V, bool) {
	e, ok := c.items[key]
	if !ok {
		var v V

		return v, false
	}

	if now.Before(e.expireAt) {
		if !peek {
			c.touch(e)
		}

		return e.value, true
	}

	c.erase(e)

	var v V

	return v, false
}

// GetRange looks up every key under a single lock acquisition and timestamp.
func (c *Cache[K, V]) GetRange(keys []K) []Result[K, V] {
	return c.findRange(keys, false)
}

// PeekRange looks up every key under a single lock acquisition without
// affecting recency.
func (c *Cache[K, V]) PeekRange(keys []K) []Result[K, V] {
	return c.findRange(keys, true)
}

func (c *Cache[K, V]) findRange(keys []K, peek bool) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		v, ok := c.doFind(k, now, peek)
		out = append(out, Result[K, V]{Key: k, Value: v, Found: ok})
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

	c.erase(e)

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

// Len returns the current number of items in the cache, including any not
// yet lazily reaped expired entries.
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
	c.lruList = list.New()
	c.ttl = ordered.New[*entry[K, V]]()
}
