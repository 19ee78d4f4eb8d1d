// Package umap provides a thread-safe, uniform-TTL associative map with no
// fixed capacity.
//
// # When to Use UMAP
//
// UMAP has no eviction pressure and no recency ordering — it never evicts a
// live entry to make room for another. Every key value pair shares the same
// TTL and is pruned only once it expires. Use it in place of a plain map
// whenever you want entries to disappear automatically after a fixed window,
// and you don't need the capacity bound or recency tracking the cache
// packages provide.
//
// # Thread Safety
//
// [New] returns a map safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// Insert, Get, and Delete are O(1) amortized. Every Set, Get, and Delete
// (and their range variants) first prunes the contiguous run of already-expired entries at
// the front of the TTL list, so it can cost O(k) where k is the number of
// entries expiring at once — this mirrors entries built up by a burst of
// inserts that all expire together.
package umap

import (
	"cmp"
	"container/list"
	"time"

	"github.com/jbcache/cappuccino/internal/lock"
	"github.com/jbcache/cappuccino/policy"
)

type ttlElem[K cmp.Ordered] struct {
	key      K
	expireAt time.Time
}

type keyedElem[K cmp.Ordered, V any] struct {
	value   V
	ttlElem *list.Element
}

// KeyValue is a convenience pairing for SetRange.
type KeyValue[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Result is a convenience pairing for GetRange.
type Result[K cmp.Ordered, V any] struct {
	Key   K
	Value V
	Found bool
}

// Map is a thread-safe, uniform-TTL associative map with no fixed capacity.
//
// Expired entries are pruned eagerly: every Set, Get, and Delete (and their
// range variants) first walks the TTL list from the front, removing the contiguous run of entries that have
// already expired, before doing its own work. Since every entry shares the
// same TTL, the front of the list is always the next one to expire.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Map[K cmp.Ordered, V any] struct {
	mu lock.Locker

	ttl     time.Duration
	items   map[K]*keyedElem[K, V]
	ttlList *list.List
}

// Option configures a Map at construction time.
type Option[K cmp.Ordered, V any] func(*config)

type config struct {
	sizeHint int
}

// WithSizeHint preallocates the backing map for approximately n entries.
func WithSizeHint[K cmp.Ordered, V any](n int) Option[K, V] {
	return func(c *config) { c.sizeHint = n }
}

func newMap[K cmp.Ordered, V any](ttl time.Duration, mu lock.Locker, opts []Option[K, V]) *Map[K, V] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Map[K, V]{
		ttl:     ttl,
		items:   make(map[K]*keyedElem[K, V], cfg.sizeHint),
		ttlList: list.New(),
		mu:      mu,
	}
}

// New creates a new thread-safe UMAP with the given uniform TTL.
func New[K cmp.Ordered, V any](ttl time.Duration, opts ...Option[K, V]) *Map[K, V] {
	return newMap[K, V](ttl, &lock.Mutex{}, opts)
}

// NewUnsafe creates a UMAP with no internal locking.
func NewUnsafe[K cmp.Ordered, V any](ttl time.Duration, opts ...Option[K, V]) *Map[K, V] {
	return newMap[K, V](ttl, lock.NoOp{}, opts)
}

// Set inserts or updates a key-value pair using the insert_or_update mode
// and always reports success. Updating an existing key resets its TTL.
func (m *Map[K, V]) Set(key K, value V) bool {
	return m.SetWithMode(key, value, policy.InsertOrUpdate)
}

// SetWithMode inserts, updates, or both, depending on mode.
func (m *Map[K, V]) SetWithMode(key K, value V, mode policy.Allow) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.prune(now)

	return m.doSet(key, value, now.Add(m.ttl), mode)
}

// SetRange applies SetWithMode for every pair under a single lock
// acquisition, a single prune pass, and a single TTL deadline.
func (m *Map[K, V]) SetRange(pairs []KeyValue[K, V], mode policy.Allow) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.prune(now)

	expireAt := now.Add(m.ttl)
	n := 0

	for _, kv := range pairs {
		if m.doSet(kv.Key, kv.Value, expireAt, mode) {
			n++
		}
	}

	return n
}

func (m *Map[K, V]) doSet(key K, value V, expireAt time.Time, mode policy.Allow) bool {
	if ke, ok := m.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		ke.value = value
		ke.ttlElem.Value.(*ttlElem[K]).expireAt = expireAt
		m.ttlList.MoveToBack(ke.ttlElem)

		return true
	}

	if !mode.InsertAllowed() {
		return false
	}

	te := m.ttlList.PushBack(&ttlElem[K]{key: key, expireAt: expireAt})
	m.items[key] = &keyedElem[K, V]{value: value, ttlElem: te}

	return true
}

// prune removes the contiguous run of already-expired entries at the front
// of the TTL list. Must be called with the lock held.
func (m *Map[K, V]) prune(now time.Time) int {
	removed := 0

	for {
		front := m.ttlList.Front()
		if front == nil {
			break
		}

		te := front.Value.(*ttlElem[K])
		if now.Before(te.expireAt) {
			break
		}

		delete(m.items, te.key)
		m.ttlList.Remove(front)

		removed++
	}

	return removed
}

// CleanExpired removes every currently expired entry and reports how many
// were removed.
func (m *Map[K, V]) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.prune(time.Now())
}

// Get retrieves a value, pruning any expired entries first. Unlike the cache
// packages, a successful lookup never affects eviction order — UMAP has
// none.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(time.Now())

	return m.doGet(key)
}

func (m *Map[K, V]) doGet(key K) (V, bool) {
	ke, ok := m.items[key]
	if !ok {
		var v V

		return v, false
	}

	return ke.value, true
}

// GetRange looks up every key under a single lock acquisition and a single
// prune pass.
func (m *Map[K, V]) GetRange(keys []K) []Result[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(time.Now())

	out := make([]Result[K, V], 0, len(keys))
	for _, k := range keys {
		v, ok := m.doGet(k)
		out = append(out, Result[K, V]{Key: k, Value: v, Found: ok})
	}

	return out
}

// Delete removes a key from the map.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(time.Now())

	return m.doDelete(key)
}

func (m *Map[K, V]) doDelete(key K) bool {
	ke, ok := m.items[key]
	if !ok {
		return false
	}

	m.ttlList.Remove(ke.ttlElem)
	delete(m.items, key)

	return true
}

// DeleteRange removes every key under a single lock acquisition, returning
// the number actually removed.
func (m *Map[K, V]) DeleteRange(keys []K) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(time.Now())

	n := 0

	for _, k := range keys {
		if m.doDelete(k) {
			n++
		}
	}

	return n
}

// Len returns the current number of items in the map, including any not yet
// lazily reaped expired entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items)
}

// Empty reports whether the map currently holds no items.
func (m *Map[K, V]) Empty() bool {
	return m.Len() == 0
}

// Clear removes every item from the map.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[K]*keyedElem[K, V], len(m.items))
	m.ttlList = list.New()
}
