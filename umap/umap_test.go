package umap_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jbcache/cappuccino/policy"
	"github.com/jbcache/cappuccino/umap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_GetEmpty(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)

	v, ok := m.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestMap_SetAndGet(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)
	m.Set("foo", 42)

	v, ok := m.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestMap_UpdateExistingKeyRefreshesTTL(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](30 * time.Millisecond)
	m.Set("a", 1)

	time.Sleep(20 * time.Millisecond)
	m.Set("a", 2)

	time.Sleep(20 * time.Millisecond)

	v, ok := m.Get("a")
	require.True(t, ok, "update should have reset the TTL clock")
	assert.Equal(t, 2, v)
}

// End-to-end scenario: insert N keys, sleep past TTL, the next mutating or
// observing call reduces the map to empty.
func TestMap_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	m := umap.New[int, int](10 * time.Millisecond)
	m.Set(1, 1)
	m.Set(2, 2)
	m.Set(3, 3)
	assert.Equal(t, 3, m.Len())

	time.Sleep(50 * time.Millisecond)

	_, ok := m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMap_CleanExpired(t *testing.T) {
	t.Parallel()

	m := umap.New[int, int](10 * time.Millisecond)
	m.Set(1, 1)
	m.Set(2, 2)

	time.Sleep(50 * time.Millisecond)

	removed := m.CleanExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, m.Len())
}

func TestMap_NoEvictionUnderPressure(t *testing.T) {
	t.Parallel()

	m := umap.New[int, int](time.Hour)

	for i := range 10_000 {
		m.Set(i, i)
	}

	assert.Equal(t, 10_000, m.Len(), "umap has no capacity bound and must never evict a live entry")
}

func TestMap_Delete(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)
	m.Set("a", 1)
	m.Set("b", 2)

	ok := m.Delete("a")
	assert.True(t, ok)

	_, exists := m.Get("a")
	assert.False(t, exists)
}

func TestMap_DeleteNonExistent(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)

	ok := m.Delete("missing")
	assert.False(t, ok)
}

func TestMap_SetWithModeInsertOnly(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)

	assert.True(t, m.SetWithMode("a", 1, policy.Insert))
	assert.False(t, m.SetWithMode("a", 2, policy.Insert))

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMap_SetRangeAndDeleteRange(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)

	n := m.SetRange([]umap.KeyValue[string, int]{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
	}, policy.InsertOrUpdate)
	assert.Equal(t, 2, n)

	results := m.GetRange([]string{"a", "missing"})
	require.Len(t, results, 2)
	assert.True(t, results[0].Found)
	assert.False(t, results[1].Found)

	removed := m.DeleteRange([]string{"a", "missing"})
	assert.Equal(t, 1, removed)
}

func TestMap_EmptyClear(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)
	assert.True(t, m.Empty())

	m.Set("a", 1)
	assert.False(t, m.Empty())

	m.Clear()
	assert.True(t, m.Empty())
	assert.Equal(t, 0, m.Len())
}

func TestMap_Unsafe(t *testing.T) {
	t.Parallel()

	m := umap.NewUnsafe[string, int](time.Hour)
	m.Set("a", 1)
	m.Set("b", 2)

	assert.Equal(t, 2, m.Len())
}

// Concurrency tests

func TestMap_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	m := umap.New[int, int](time.Hour)

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				m.Set(id*100+j, j)
			}
		}(i)
	}

	wg.Wait()
}

func TestMap_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	m := umap.New[string, int](time.Hour)

	for i := range 50 {
		m.Set(fmt.Sprintf("key%d", i), i)
	}

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				m.Set(fmt.Sprintf("writer%d-key%d", id, j), j)
			}
		}(i)
	}

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				m.Get(fmt.Sprintf("writer%d-key%d", id, j))
			}
		}(i)
	}

	wg.Wait()
}
