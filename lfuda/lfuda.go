// Package lfuda provides a thread-safe LFUDA (Least Frequently Used with
// Dynamic Aging) cache implementation.
//
// # When to Use LFUDA
//
// LFUDA behaves like [lfu], but use counts decay over time: any entry that
// hasn't been touched for one age tick has its use count reduced by the age
// ratio the next time aging runs. This prevents an item that was briefly
// hot from camping at the top of the frequency ordering forever — it has to
// keep earning its keep. Good fits:
//   - Caches where popularity shifts over time (trending content, seasonal
//     catalogs)
//   - Anywhere plain LFU's "permanently hot" problem causes stale entries to
//     starve out genuinely active ones
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// Get/Set/Delete are O(log d) where d is the number of distinct use-counts
// currently present. DynamicallyAge is O(k) where k is the number of entries
// old enough to decay.
package lfuda

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
	useCount int64
	agedAt   time.Time
	freqElem *list.Element
	ageElem  *list.Element
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

// Cache is a thread-safe LFUDA (Least Frequently Used with Dynamic Aging) cache.
//
// Every entry carries a use count like [lfu], plus a "last touched" timestamp
// tracked in the dynamic-age list. Any entry not touched for one AgeTick has
// its use count multiplied by AgeRatio (rounded down) the next time aging
// runs: on an insert into a full cache, or an explicit [Cache.DynamicallyAge]
// call.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity uint64
	items    map[K]*entry[K, V]
	freq     *ordered.Index[*entry[K, V]]
	ageList  *list.List

	ageTick  time.Duration
	ageRatio float64
}

// Option configures a Cache at construction time.
type Option[K comparable, V any] func(*config)

type config struct {
	maxLoadFactor float64
	ageTick       time.Duration
	ageRatio      float64
}

// WithMaxLoadFactor forwards a load-factor hint to the internal index's
// initial sizing. The default of 1.0 matches the original cappuccino default.
func WithMaxLoadFactor[K comparable, V any](f float64) Option[K, V] {
	return func(c *config) { c.maxLoadFactor = f }
}

// WithAgeTick sets how long an entry can go untouched before it becomes
// eligible for dynamic aging. The default is one minute.
func WithAgeTick[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *config) { c.ageTick = d }
}

// WithAgeRatio sets the multiplier applied to an entry's use count when it
// dynamically ages. The default is 0.5 (halving).
func WithAgeRatio[K comparable, V any](ratio float64) Option[K, V] {
	return func(c *config) { c.ageRatio = ratio }
}

func newCache[K comparable, V any](capacity uint64, mu lock.Locker, opts []Option[K, V]) *Cache[K, V] {
	cfg := config{maxLoadFactor: 1.0, ageTick: time.Minute, ageRatio: 0.5}
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
		ageList:  list.New(),
		ageTick:  cfg.ageTick,
		ageRatio: cfg.ageRatio,
		mu:       mu,
	}
}

// New creates a new thread-safe LFUDA cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates an LFUDA cache with no internal locking.
func NewUnsafe[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, lock.NoOp{}, opts)
}

// Set adds or updates a key-value pair using the insert_or_update mode. It
// reports false only when the cache has zero capacity.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.SetWithMode(key, value, policy.InsertOrUpdate)
}

// SetWithMode adds, updates, or both, depending on mode. It reports whether
// the mutation happened. Inserting when the cache is full dynamically ages
// the whole cache before choosing an eviction victim, same as the original.
func (c *Cache[K, V]) SetWithMode(key K, value V, mode policy.Allow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doSet(key, value, mode, time.Now())
}

// SetRange applies SetWithMode for every pair under a single lock acquisition
// and a single "now" timestamp, matching the original's batch semantics.
func (c *Cache[K, V]) SetRange(pairs []KeyValue[K, V], mode policy.Allow) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0

	for _, kv := range pairs {
		if c.doSet(kv.Key, kv.Value, mode, now) {
			n++
		}
	}

	return n
}

func (c *Cache[K, V]) doSet(key K, value V, mode policy.Allow, now time.Time) bool {
	if e, ok := c.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		e.value = value
		c.touch(e, now)

		return true
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

	e := &entry[K, V]{key: key, value: value, useCount: 1, agedAt: now}
	e.freqElem = c.freq.Insert(1, e)
	e.ageElem = c.ageList.PushBack(e)
	c.items[key] = e

	return true
}

// touch increments an entry's use count, relocates it in the frequency
// ordering, and moves it to the back of the dynamic-age list as the most
// recently touched entry. Must be called with the lock held.
func (c *Cache[K, V]) touch(e *entry[K, V], now time.Time) {
	c.freq.Remove(e.useCount, e.freqElem)
	e.useCount++
	e.freqElem = c.freq.Insert(e.useCount, e)

	c.ageList.MoveToBack(e.ageElem)
	e.agedAt = now
}

// prune dynamically ages the cache, then evicts the entry with the smallest
// use count. Must be called with the lock held.
func (c *Cache[K, V]) prune(now time.Time) {
	if len(c.items) == 0 {
		return
	}

	c.doDynamicallyAge(now)

	_, victim, ok := c.freq.Min()
	if !ok {
		return
	}

	c.erase(victim)
}

func (c *Cache[K, V]) erase(e *entry[K, V]) {
	c.freq.Remove(e.useCount, e.freqElem)
	c.ageList.Remove(e.ageElem)
	delete(c.items, e.key)
}

// DynamicallyAge walks the dynamic-age list from its oldest end, reducing
// the use count of every entry that has gone untouched for at least
// AgeTick, and reports how many entries were aged.
func (c *Cache[K, V]) DynamicallyAge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doDynamicallyAge(time.Now())
}

func (c *Cache[K, V]) doDynamicallyAge(now time.Time) int {
	aged := 0

	for {
		front := c.ageList.Front()
		if front == nil {
			break
		}

		e := front.Value.(*entry[K, V])
		if !e.agedAt.Add(c.ageTick).Before(now) {
			break
		}

		c.ageList.MoveToBack(e.ageElem)
		e.agedAt = now

		c.freq.Remove(e.useCount, e.freqElem)
		e.useCount = int64(float64(e.useCount) * c.ageRatio)
		e.freqElem = c.freq.Insert(e.useCount, e)

		aged++
	}

	return aged
}

// Get retrieves a value from the cache, counting as a use and refreshing
// the entry's dynamic-age timestamp.
//
// Use [Cache.Peek] if you need to check a value without affecting its
// use count or age.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.touch(e, time.Now())

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
		c.touch(e, time.Now())

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

	now := time.Now()
	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if e, ok := c.items[k]; ok {
			c.touch(e, now)
			out = append(out, Result[K, V]{Key: k, Value: e.value, Found: true})
		} else {
			out = append(out, Result[K, V]{Key: k})
		}
	}

	return out
}

// Peek retrieves a value without counting it as a use or refreshing its age.
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
	c.ageList = list.New()
}
