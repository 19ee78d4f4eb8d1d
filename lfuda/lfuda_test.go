package lfuda_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jbcache/cappuccino/lfuda"
	"github.com/jbcache/cappuccino/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLFUDACache_GetEmpty(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestLFUDACache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	c.Set("foo", 42)

	v, ok := c.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestLFUDACache_UpdateExistingKey(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	c.Set("key", 100)
	c.Set("key", 200)

	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, 200, v)
}

func TestLFUDACache_EvictsLeastFrequentlyUsed(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Get("a")
	c.Get("c")

	c.Set("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok, "expected 'b' to be evicted as the least frequently used entry")
}

func TestLFUDACache_GetWithUseCountIncrementsOnAccess(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	c.Set("a", 1)

	_, useCount, ok := c.GetWithUseCount("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), useCount)
}

func TestLFUDACache_PeekDoesNotAffectUseCount(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	c.Set("a", 1)

	v, ok := c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, useCount, ok := c.PeekWithUseCount("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), useCount, "peek must not bump use count")
}

// End-to-end scenario: with age tick T and ratio r, after letting 2T pass and
// calling DynamicallyAge, every entry's use count is floor(old * r).
func TestLFUDACache_DynamicallyAgeHalvesUseCounts(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5,
		lfuda.WithAgeTick[string, int](20*time.Millisecond),
		lfuda.WithAgeRatio[string, int](0.5),
	)

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")

	_, useCount, ok := c.PeekWithUseCount("a")
	require.True(t, ok)
	require.Equal(t, int64(4), useCount, "insert=1, three gets=+3")

	time.Sleep(50 * time.Millisecond)

	aged := c.DynamicallyAge()
	assert.Equal(t, 1, aged)

	_, useCount, ok = c.PeekWithUseCount("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), useCount, "floor(4*0.5) == 2")
}

func TestLFUDACache_DynamicallyAgeSkipsRecentlyTouchedEntries(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5, lfuda.WithAgeTick[string, int](50*time.Millisecond))

	c.Set("a", 1)

	aged := c.DynamicallyAge()
	assert.Equal(t, 0, aged, "freshly inserted entries must not age immediately")
}

func TestLFUDACache_FullInsertAgesBeforeEvicting(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](2, lfuda.WithAgeTick[string, int](10*time.Millisecond))

	c.Set("a", 1)
	c.Set("b", 2)

	c.Get("a")
	c.Get("a")
	c.Get("a")

	time.Sleep(30 * time.Millisecond)

	// "b" (use count 1, aged to 0 or 0-floor) becomes the weakest after aging
	// and "a" keeps enough residual count to survive.
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.True(t, ok, "expected 'a' to survive due to its higher use count")
}

func TestLFUDACache_Delete(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	c.Set("a", 1)
	c.Set("b", 2)

	ok := c.Delete("a")
	assert.True(t, ok)

	_, exists := c.Get("a")
	assert.False(t, exists)
}

func TestLFUDACache_DeleteNonExistent(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)

	ok := c.Delete("missing")
	assert.False(t, ok)
}

func TestLFUDACache_SetWithModeInsertOnly(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)

	assert.True(t, c.SetWithMode("a", 1, policy.Insert))
	assert.False(t, c.SetWithMode("a", 2, policy.Insert))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLFUDACache_SetRangeAndDeleteRange(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](10)

	n := c.SetRange([]lfuda.KeyValue[string, int]{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
	}, policy.InsertOrUpdate)
	assert.Equal(t, 2, n)

	results := c.GetRange([]string{"a", "missing"})
	require.Len(t, results, 2)
	assert.True(t, results[0].Found)
	assert.False(t, results[1].Found)

	removed := c.DeleteRange([]string{"a", "missing"})
	assert.Equal(t, 1, removed)
}

func TestLFUDACache_CapacityEmptyClear(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](5)
	assert.Equal(t, uint64(5), c.Capacity())
	assert.True(t, c.Empty())

	c.Set("a", 1)
	assert.False(t, c.Empty())

	c.Clear()
	assert.True(t, c.Empty())
	assert.Equal(t, 0, c.Len())
}

func TestLFUDACache_Unsafe(t *testing.T) {
	t.Parallel()

	c := lfuda.NewUnsafe[string, int](2)
	c.Set("a", 1)
	c.Get("a")
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.True(t, ok)
}

// Concurrency tests

func TestLFUDACache_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	c := lfuda.New[int, int](100)

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				c.Set(id*100+j, j)
			}
		}(i)
	}

	wg.Wait()
}

func TestLFUDACache_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	c := lfuda.New[string, int](100)

	for i := range 50 {
		c.Set(fmt.Sprintf("key%d", i), i)
	}

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				c.Set(fmt.Sprintf("writer%d-key%d", id, j), j)
			}
		}(i)
	}

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				c.Get(fmt.Sprintf("writer%d-key%d", id, j))
			}
		}(i)
	}

	wg.Wait()
}
