// Package ordered provides a minimal ordered multimap keyed by int64,
// standing in for the std::multimap<size_t, ...> / std::multimap<time_point,
// ...> structures the original cappuccino source uses for the LFU frequency
// ordering and the TLRU per-entry expiry ordering. No tree or skip-list
// library appears anywhere in the retrieved corpus, so this keeps the same
// complexity class — O(log d) where d is the number of distinct keys
// currently present — using only container/list and sort.Search.
package ordered

import (
	"container/list"
	"sort"
)

// Index maps int64 keys to buckets of values; keys may repeat (hence
// "multimap"), each repeat landing in the bucket's list. The zero value is
// not usable; construct with New.
type Index[T any] struct {
	buckets map[int64]*list.List
	keys    []int64 // sorted ascending, one entry per non-empty bucket
}

// New creates an empty ordered index.
func New[T any]() *Index[T] {
	return &Index[T]{buckets: make(map[int64]*list.List)}
}

// Insert adds value under key and returns the handle Remove needs later.
func (ix *Index[T]) Insert(key int64, value T) *list.Element {
	b, ok := ix.buckets[key]
	if !ok {
		b = list.New()
		ix.buckets[key] = b
		ix.insertKey(key)
	}

	return b.PushBack(value)
}

// Remove detaches elem, which must have been returned by Insert under key.
func (ix *Index[T]) Remove(key int64, elem *list.Element) {
	b, ok := ix.buckets[key]
	if !ok {
		return
	}

	b.Remove(elem)

	if b.Len() == 0 {
		delete(ix.buckets, key)
		ix.removeKey(key)
	}
}

// Min returns the smallest key currently present and the value at the front
// of its bucket, or ok=false if the index is empty.
func (ix *Index[T]) Min() (key int64, value T, ok bool) {
	if len(ix.keys) == 0 {
		return 0, value, false
	}

	key = ix.keys[0]

	return key, ix.buckets[key].Front().Value.(T), true
}

func (ix *Index[T]) insertKey(key int64) {
	i := sort.Search(len(ix.keys), func(i int) bool { return ix.keys[i] >= key })
	ix.keys = append(ix.keys, 0)
	copy(ix.keys[i+1:], ix.keys[i:])
	ix.keys[i] = key
}

func (ix *Index[T]) removeKey(key int64) {
	i := sort.Search(len(ix.keys), func(i int) bool { return ix.keys[i] >= key })
	if i < len(ix.keys) && ix.keys[i] == key {
		ix.keys = append(ix.keys[:i], ix.keys[i+1:]...)
	}
}
