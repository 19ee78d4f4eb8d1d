// Package ulru provides a thread-safe ULRU (Uniform TTL Least Recently Used)
// cache implementation.
//
// # When to Use ULRU
//
// ULRU is [tlru]'s cheaper sibling: every entry shares the same TTL, set
// once at construction (and adjustable later via [Cache.UpdateTTL]) rather
// than per insert. Because every entry's expiry is "insertion/refresh time
// plus the same duration", insertion order already equals expiry order —
// there's no need for an ordered multimap keyed by expiry instant, just a
// plain list. Use ULRU when a single TTL applies to the whole cache (a
// session cache with one fixed timeout, for example) and you don't need
// per-entry TTL control.
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// All single-key operations are O(1).
package ulru

import (
	"container/list"
	"time"

	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/policy"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	expireAt time.Time
	lruElem  *list.Element
	ttlElem  *list.Element
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

// Cache is a thread-safe ULRU (Uniform TTL Least Recently Used) cache.
//
// All entries share the cache's current TTL. Because every entry's expiry
// is a fixed offset from its last insert or update, the TTL list doubles as
// insertion order — oldest expiry is at the front. After [Cache.UpdateTTL]
// shortens the TTL, newer entries can expire before older ones; CleanExpired
// and the prune on a full insert only look at the front of the list.
//
// Expiry is lazy: nothing is reaped on a timer. An expired entry is only
// removed when a later Get, Set, or explicit [Cache.CleanExpired] call
// touches it.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity uint64
	ttl      time.Duration
	items    map[K]*entry[K, V]
	lruList  *list.List
	ttlList  *list.List
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

func newCache[K comparable, V any](ttl time.Duration, capacity uint64, mu lock.Locker, opts []Option[K, V]) *Cache[K, V] {
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
		ttl:      ttl,
		items:    make(map[K]*entry[K, V], hint),
		lruList:  list.New(),
		ttlList:  list.New(),
		mu:       mu,
	}
}

// New creates a new thread-safe ULRU cache with the given uniform TTL and
// maximum capacity.
func New[K comparable, V any](ttl time.Duration, capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](ttl, capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates a ULRU cache with no internal locking.
func NewUnsafe[K comparable, V any](ttl time.Duration, capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](ttl, capacity, lock.NoOp{}, opts)
}

// UpdateTTL changes the TTL applied to future inserts and updates. Entries
// already in the cache keep expiring at their previously assigned time.
func (c *Cache[K, V]) UpdateTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
}

// Set adds or updates a key-value pair using the insert_or_update mode. It
// reports false only when the cache has zero capacity. Updating an existing
// key resets its TTL.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.SetWithMode(key, value, policy.InsertOrUpdate)
}

// SetWithMode adds, updates, or both, depending on mode.
//
// If mode only allows insertion and key already exists but has expired, the
// insert is upgraded into an in-place update rather than rejected.
func (c *Cache[K, V]) SetWithMode(key K, value V, mode policy.Allow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doSet(key, value, time.Now(), mode)
}

// SetRange applies SetWithMode for every pair under a single lock
// acquisition and a single "now" timestamp.
func (c *Cache[K, V]) SetRange(pairs []KeyValue[K, V], mode policy.Allow) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0

	for _, kv := range pairs {
		if c.doSet(kv.Key, kv.Value, now, mode) {
			n++
		}
	}

	return n
}

func (c *Cache[K, V]) doSet(key K, value V, now time.Time, mode policy.Allow) bool {
	if e, ok := c.items[key]; ok {
		if mode.UpdateAllowed() {
			c.update(e, value, now)

			return true
		}

		if mode.InsertAllowed() && !now.Before(e.expireAt) {
			c.update(e, value, now)

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

	e := &entry[K, V]{key: key, value: value, expireAt: now.Add(c.ttl)}
	e.ttlElem = c.ttlList.PushBack(e)
	e.lruElem = c.lruList.PushFront(e)
	c.items[key] = e

	return true
}

func (c *Cache[K, V]) update(e *entry[K, V], value V, now time.Time) {
	e.value = value
	e.expireAt = now.Add(c.ttl)
	c.ttlList.MoveToBack(e.ttlElem)

	c.touch(e)
}

func (c *Cache[K, V]) touch(e *entry[K, V]) {
	c.lruList.MoveToFront(e.lruElem)
}

func (c *Cache[K, V]) erase(e *entry[K, V]) {
	c.lruList.Remove(e.lruElem)
	c.ttlList.Remove(e.ttlElem)
	delete(c.items, e.key)
}

// prune prefers evicting the oldest-expiring entry if it has already
// expired, falling back to the least recently used one. Must be called
// with the lock held.
func (c *Cache[K, V]) prune(now time.Time) {
	if len(c.items) == 0 {
		return
	}

	if front := c.ttlList.Front(); front != nil {
		e := front.Value.(*entry[K, V])
		if !now.Before(e.expireAt) {
			c.erase(e)

			return
		}
	}

	if back := c.lruList.Back(); back != nil {
		c.erase(back.Value.(*entry[K, V]))
	}
}

// CleanExpired removes every currently expired entry and reports how many
// were removed.
func (c *Cache[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	for {
		front := c.ttlList.Front()
		if front == nil {
			break
		}

		e := front.Value.(*entry[K, V])
		if now.Before(e.expireAt) {
			break
		}

		c.erase(e)

		removed++
	}

	return removed
}

// Get retrieves a value from the cache and marks it as recently used,
// unless it has already expired — in which case it is reaped and
// (zero, false) is returned.
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
	c.ttlList = list.New()
}
