// Package rr provides a thread-safe RR (Random Replacement) cache implementation.
//
// # When to Use RR
//
// RR evicts a uniformly random occupant when full, rather than tracking any
// access order. That makes it the cheapest possible eviction policy per
// operation — no list splicing, no frequency bookkeeping — at the cost of
// no adaptivity to access patterns. Good fits:
//   - Workloads with no temporal or frequency locality to exploit
//   - Very high throughput caches where the bookkeeping cost of LRU/LFU
//     dominates the benefit of smarter eviction
//   - As a baseline to compare smarter policies against
//
// # How RR Works
//
// Entries live in a flat, densely packed arena (a slice) with a parallel
// key→slot index. On a full insert, a single random slot in the occupied
// range is chosen as the victim; the last occupied slot is swapped into the
// freed position so the arena stays dense. Get and Peek have no ordering
// side-effect, since there is no ordering to maintain.
//
// # Thread Safety
//
// [New] returns a cache safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// All operations are O(1).
package rr

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/policy"
)

type entry[K comparable, V any] struct {
	key   K
	value V
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

// Cache is a thread-safe RR (Random Replacement) cache.
//
// Occupied slots live in arena[0:size); the slot index for each key is
// tracked in items. Eviction picks a uniformly random occupied slot and
// swaps the last occupied slot into its place, which keeps the arena dense
// without shifting every element.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Cache[K comparable, V any] struct {
	mu lock.Locker

	capacity uint64
	size     uint64
	arena    []entry[K, V]
	items    map[K]uint64
	rng      *rand.Rand
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
		arena:    make([]entry[K, V], capacity),
		items:    make(map[K]uint64, hint),
		mu:       mu,
		rng:      rand.New(rand.NewPCG(seedWord(), seedWord())),
	}
}

// seedWord draws a nondeterministic 64-bit seed word from the operating
// system's CSPRNG, matching the original's "seeded once from a
// nondeterministic source" requirement without pulling in a separate
// Mersenne-Twister dependency — none appears anywhere in the corpus.
func seedWord() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is broken;
		// fall back to a fixed word rather than panic.
		return 0x9e3779b97f4a7c15
	}

	return binary.LittleEndian.Uint64(b[:])
}

// New creates a new thread-safe RR cache with the specified maximum capacity.
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) *Cache[K, V] {
	return newCache[K, V](capacity, &lock.Mutex{}, opts)
}

// NewUnsafe creates an RR cache with no internal locking.
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
	if idx, ok := c.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		c.arena[idx].value = value

		return true
	}

	if !mode.InsertAllowed() {
		return false
	}

	if c.size >= c.capacity {
		if c.capacity == 0 {
			return false
		}

		c.evict()
	}

	idx := c.size
	c.arena[idx] = entry[K, V]{key: key, value: value}
	c.items[key] = idx
	c.size++

	return true
}

// evict removes a uniformly random occupied slot. Must be called with the
// lock held and size > 0.
func (c *Cache[K, V]) evict() {
	victim := uint64(c.rng.IntN(int(c.size)))
	last := c.size - 1

	delete(c.items, c.arena[victim].key)

	if victim != last {
		c.arena[victim] = c.arena[last]
		c.items[c.arena[victim].key] = victim
	}

	var zero entry[K, V]

	c.arena[last] = zero
	c.size--
}

// Get retrieves a value from the cache.
//
// RR has no access-order bookkeeping, so Get and [Cache.Peek] are equivalent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.items[key]; ok {
		return c.arena[idx].value, true
	}

	var v V

	return v, false
}

// GetRange looks up every key under a single lock acquisition.
func (c *Cache[K, V]) GetRange(keys []K) []Result[K, V] {
	return c.PeekRange(keys)
}

// Peek retrieves a value from the cache. Identical to [Cache.Get]; kept for
// API symmetry with the ordered cache variants.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.Get(key)
}

// PeekRange looks up every key under a single lock acquisition.
func (c *Cache[K, V]) PeekRange(keys []K) []Result[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result[K, V], 0, len(keys))

	for _, k := range keys {
		if idx, ok := c.items[k]; ok {
			out = append(out, Result[K, V]{Key: k, Value: c.arena[idx].value, Found: true})
		} else {
			out = append(out, Result[K, V]{Key: k})
		}
	}

	return out
}

// Delete removes a key from the cache, swapping the last occupied slot into
// its place to keep the arena dense.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doDelete(key)
}

func (c *Cache[K, V]) doDelete(key K) bool {
	idx, ok := c.items[key]
	if !ok {
		return false
	}

	last := c.size - 1
	delete(c.items, key)

	if idx != last {
		c.arena[idx] = c.arena[last]
		c.items[c.arena[idx].key] = idx
	}

	var zero entry[K, V]

	c.arena[last] = zero
	c.size--

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

	return int(c.size)
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

	clear(c.arena)
	c.items = make(map[K]uint64, len(c.items))
	c.size = 0
}
