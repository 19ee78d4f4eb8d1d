package uset_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jbcache/cappuccino/policy"
	"github.com/jbcache/cappuccino/uset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_ContainsEmpty(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)

	assert.False(t, s.Contains("missing"))
}

func TestSet_AddAndContains(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)
	s.Add("foo")

	assert.True(t, s.Contains("foo"))
}

func TestSet_AddExistingKeyRefreshesTTL(t *testing.T) {
	t.Parallel()

	s := uset.New[string](30 * time.Millisecond)
	s.Add("a")

	time.Sleep(20 * time.Millisecond)
	s.Add("a")

	time.Sleep(20 * time.Millisecond)

	require.True(t, s.Contains("a"), "re-adding should have reset the TTL clock")
}

// End-to-end scenario: add N keys, sleep past TTL, the next mutating or
// observing call reduces the set to empty.
func TestSet_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	s := uset.New[int](10 * time.Millisecond)
	s.Add(1)
	s.Add(2)
	s.Add(3)
	assert.Equal(t, 3, s.Len())

	time.Sleep(50 * time.Millisecond)

	assert.False(t, s.Contains(1))
	assert.Equal(t, 0, s.Len())
}

func TestSet_CleanExpired(t *testing.T) {
	t.Parallel()

	s := uset.New[int](10 * time.Millisecond)
	s.Add(1)
	s.Add(2)

	time.Sleep(50 * time.Millisecond)

	removed := s.CleanExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Len())
}

func TestSet_NoEvictionUnderPressure(t *testing.T) {
	t.Parallel()

	s := uset.New[int](time.Hour)

	for i := range 10_000 {
		s.Add(i)
	}

	assert.Equal(t, 10_000, s.Len(), "uset has no capacity bound and must never evict a live key")
}

func TestSet_Remove(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)
	s.Add("a")
	s.Add("b")

	ok := s.Remove("a")
	assert.True(t, ok)
	assert.False(t, s.Contains("a"))
}

func TestSet_RemoveNonExistent(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)

	ok := s.Remove("missing")
	assert.False(t, ok)
}

func TestSet_AddWithModeInsertOnly(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)

	assert.True(t, s.AddWithMode("a", policy.Insert))
	assert.False(t, s.AddWithMode("a", policy.Insert))
}

func TestSet_AddRangeAndRemoveRange(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)

	n := s.AddRange([]string{"a", "b"}, policy.InsertOrUpdate)
	assert.Equal(t, 2, n)

	results := s.ContainsRange([]string{"a", "missing"})
	require.Len(t, results, 2)
	assert.True(t, results[0].Present)
	assert.False(t, results[1].Present)

	removed := s.RemoveRange([]string{"a", "missing"})
	assert.Equal(t, 1, removed)
}

func TestSet_EmptyClear(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)
	assert.True(t, s.Empty())

	s.Add("a")
	assert.False(t, s.Empty())

	s.Clear()
	assert.True(t, s.Empty())
	assert.Equal(t, 0, s.Len())
}

func TestSet_Unsafe(t *testing.T) {
	t.Parallel()

	s := uset.NewUnsafe[string](time.Hour)
	s.Add("a")
	s.Add("b")

	assert.Equal(t, 2, s.Len())
}

// Concurrency tests

func TestSet_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	s := uset.New[int](time.Hour)

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				s.Add(id*100 + j)
			}
		}(i)
	}

	wg.Wait()
}

func TestSet_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	s := uset.New[string](time.Hour)

	for i := range 50 {
		s.Add(fmt.Sprintf("key%d", i))
	}

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				s.Add(fmt.Sprintf("writer%d-key%d", id, j))
			}
		}(i)
	}

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				s.Contains(fmt.Sprintf("writer%d-key%d", id, j))
			}
		}(i)
	}

	wg.Wait()
}
