// Package uset provides a thread-safe, uniform-TTL set with no fixed
// capacity.
//
// # When to Use USET
//
// USET is [umap] without the associated value: every key shares the same
// TTL and is pruned only once it expires, with no eviction pressure and no
// recency ordering. Use it to track "have I seen this key recently"
// membership — rate-limit windows, deduplication windows, and the like —
// without needing a value attached.
//
// # Thread Safety
//
// [New] returns a set safe for concurrent use. [NewUnsafe] sheds the
// internal lock entirely for single-goroutine callers.
//
// # Performance
//
// Add, Contains, and Remove are O(1) amortized. Every Add, Contains, and
// Remove (and their range variants) first prunes the contiguous run of already-expired keys at the
// front of the TTL list.
package uset

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

// Result is a convenience pairing for ContainsRange.
type Result[K cmp.Ordered] struct {
	Key     K
	Present bool
}

// Set is a thread-safe, uniform-TTL set with no fixed capacity.
//
// Expired keys are pruned eagerly: every Add, Contains, and Remove (and their
// range variants) first walks the TTL list from the front, removing the contiguous run of keys that have already
// expired, before doing its own work.
//
// The zero value is not usable; create instances with [New] or [NewUnsafe].
type Set[K cmp.Ordered] struct {
	mu lock.Locker

	ttl     time.Duration
	items   map[K]*list.Element
	ttlList *list.List
}

// Option configures a Set at construction time.
type Option[K cmp.Ordered] func(*config)

type config struct {
	sizeHint int
}

// WithSizeHint preallocates the backing map for approximately n keys.
func WithSizeHint[K cmp.Ordered](n int) Option[K] {
	return func(c *config) { c.sizeHint = n }
}

func newSet[K cmp.Ordered](ttl time.Duration, mu lock.Locker, opts []Option[K]) *Set[K] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Set[K]{
		ttl:     ttl,
		items:   make(map[K]*list.Element, cfg.sizeHint),
		ttlList: list.New(),
		mu:      mu,
	}
}

// New creates a new thread-safe USET with the given uniform TTL.
func New[K cmp.Ordered](ttl time.Duration, opts ...Option[K]) *Set[K] {
	return newSet[K](ttl, &lock.Mutex{}, opts)
}

// NewUnsafe creates a USET with no internal locking.
func NewUnsafe[K cmp.Ordered](ttl time.Duration, opts ...Option[K]) *Set[K] {
	return newSet[K](ttl, lock.NoOp{}, opts)
}

// Add inserts or refreshes a key using the insert_or_update mode and always
// reports success. Adding an existing key resets its TTL.
func (s *Set[K]) Add(key K) bool {
	return s.AddWithMode(key, policy.InsertOrUpdate)
}

// AddWithMode inserts, refreshes, or both, depending on mode.
func (s *Set[K]) AddWithMode(key K, mode policy.Allow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.prune(now)

	return s.doAdd(key, now.Add(s.ttl), mode)
}

// AddRange applies AddWithMode for every key under a single lock
// acquisition, a single prune pass, and a single TTL deadline.
func (s *Set[K]) AddRange(keys []K, mode policy.Allow) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.prune(now)

	expireAt := now.Add(s.ttl)
	n := 0

	for _, k := range keys {
		if s.doAdd(k, expireAt, mode) {
			n++
		}
	}

	return n
}

func (s *Set[K]) doAdd(key K, expireAt time.Time, mode policy.Allow) bool {
	if elem, ok := s.items[key]; ok {
		if !mode.UpdateAllowed() {
			return false
		}

		elem.Value.(*ttlElem[K]).expireAt = expireAt
		s.ttlList.MoveToBack(elem)

		return true
	}

	if !mode.InsertAllowed() {
		return false
	}

	s.items[key] = s.ttlList.PushBack(&ttlElem[K]{key: key, expireAt: expireAt})

	return true
}

// prune removes the contiguous run of already-expired keys at the front of
// the TTL list. Must be called with the lock held.
func (s *Set[K]) prune(now time.Time) int {
	removed := 0

	for {
		front := s.ttlList.Front()
		if front == nil {
			break
		}

		te := front.Value.(*ttlElem[K])
		if now.Before(te.expireAt) {
			break
		}

		delete(s.items, te.key)
		s.ttlList.Remove(front)

		removed++
	}

	return removed
}

// CleanExpired removes every currently expired key and reports how many
// were removed.
func (s *Set[K]) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.prune(time.Now())
}

// Contains reports whether key is present, pruning any expired keys first.
func (s *Set[K]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(time.Now())

	_, ok := s.items[key]

	return ok
}

// ContainsRange checks every key under a single lock acquisition and a
// single prune pass.
func (s *Set[K]) ContainsRange(keys []K) []Result[K] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(time.Now())

	out := make([]Result[K], 0, len(keys))
	for _, k := range keys {
		_, ok := s.items[k]
		out = append(out, Result[K]{Key: k, Present: ok})
	}

	return out
}

// Remove removes a key from the set.
func (s *Set[K]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(time.Now())

	return s.doRemove(key)
}

func (s *Set[K]) doRemove(key K) bool {
	elem, ok := s.items[key]
	if !ok {
		return false
	}

	s.ttlList.Remove(elem)
	delete(s.items, key)

	return true
}

// RemoveRange removes every key under a single lock acquisition, returning
// the number actually removed.
func (s *Set[K]) RemoveRange(keys []K) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(time.Now())

	n := 0

	for _, k := range keys {
		if s.doRemove(k) {
			n++
		}
	}

	return n
}

// Len returns the current number of keys in the set, including any not yet
// lazily reaped expired keys.
func (s *Set[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// Empty reports whether the set currently holds no keys.
func (s *Set[K]) Empty() bool {
	return s.Len() == 0
}

// Clear removes every key from the set.
func (s *Set[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[K]*list.Element, len(s.items))
	s.ttlList = list.New()
}
