package cache_test

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvcache/core/cache"
)

func TestLRU_Put(t *testing.T) {
	t.Parallel()

	t.Run("inserts new entry", func(t *testing.T) {
		c := cache.NewLRU(100)
		require.True(t, c.Put("a", []byte("hello")))

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, []byte("hello"), v)
		assert.Equal(t, 6, c.Size())
		assert.Equal(t, 1, c.Len())
	})

	t.Run("replaces existing value and adjusts size", func(t *testing.T) {
		c := cache.NewLRU(100)
		require.True(t, c.Put("a", []byte("hello")))
		require.True(t, c.Put("a", []byte("hi")))

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, []byte("hi"), v)
		assert.Equal(t, 3, c.Size())
		assert.Equal(t, 1, c.Len())
	})

	t.Run("rejects entry larger than capacity", func(t *testing.T) {
		c := cache.NewLRU(10)
		require.True(t, c.Put("k", []byte("v")))

		assert.False(t, c.Put("key", []byte("12345678")))
		assert.Equal(t, []string{"k"}, c.Keys())
		assert.Equal(t, 2, c.Size())
		assert.Equal(t, int64(1), c.Stats().Rejections)
	})

	t.Run("accepts entry exactly equal to capacity", func(t *testing.T) {
		c := cache.NewLRU(10)
		require.True(t, c.Put("a", []byte("123")))
		require.True(t, c.Put("key", []byte("1234567")))

		assert.Equal(t, []string{"key"}, c.Keys())
		assert.Equal(t, 10, c.Size())
	})

	t.Run("copies caller buffer", func(t *testing.T) {
		c := cache.NewLRU(100)
		buf := []byte("hello")
		require.True(t, c.Put("a", buf))
		buf[0] = 'J'

		v, _ := c.Get("a")
		assert.Equal(t, []byte("hello"), v)

		v[0] = 'Y'
		again, _ := c.Get("a")
		assert.Equal(t, []byte("hello"), again)
	})

	t.Run("growing update evicts others but never itself", func(t *testing.T) {
		c := cache.NewLRU(10)
		require.True(t, c.Put("a", []byte("1")))
		require.True(t, c.Put("b", []byte("1")))
		require.True(t, c.Put("c", []byte("1")))

		require.True(t, c.Put("a", []byte("123456")))
		assert.Equal(t, []string{"a", "c"}, c.Keys())
		assert.Equal(t, 9, c.Size())
	})

	t.Run("zero capacity rejects everything", func(t *testing.T) {
		c := cache.NewLRU(0)
		assert.False(t, c.Put("a", nil))
		assert.Equal(t, 0, c.Len())
	})
}

func TestLRU_PutIfAbsent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(100)
	require.True(t, c.PutIfAbsent("a", []byte("1")))
	assert.False(t, c.PutIfAbsent("a", []byte("2")))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	assert.False(t, c.PutIfAbsent("big", make([]byte, 200)))
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Set(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(100)
	assert.False(t, c.Set("a", []byte("1")))
	assert.Equal(t, 0, c.Len())

	require.True(t, c.Put("a", []byte("1")))
	require.True(t, c.Put("b", []byte("2")))
	require.True(t, c.Set("a", []byte("updated")))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("updated"), v)

	assert.False(t, c.Set("a", make([]byte, 100)))
	v, _ = c.Get("a")
	assert.Equal(t, []byte("updated"), v)
}

func TestLRU_Delete(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := cache.NewLRU(100, cache.WithEvictionCallback(func(key string, _ []byte) {
		evicted = append(evicted, key)
	}))

	require.True(t, c.Put("a", []byte("1")))
	require.True(t, c.Put("b", []byte("22")))
	require.True(t, c.Put("c", []byte("333")))

	assert.True(t, c.Delete("b"))
	assert.False(t, c.Delete("b"))
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	assert.Equal(t, 2+4, c.Size())
	assert.Empty(t, evicted)

	assert.True(t, c.Delete("a"))
	assert.True(t, c.Delete("c"))
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())

	// slots are recycled after deletion
	require.True(t, c.Put("d", []byte("4")))
	assert.Equal(t, []string{"d"}, c.Keys())
}

func TestLRU_GetPromotesRecency(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := cache.NewLRU(4, cache.WithEvictionCallback(func(key string, _ []byte) {
		evicted = append(evicted, key)
	}))

	require.True(t, c.Put("A", []byte("a")))
	require.True(t, c.Put("B", []byte("b")))

	_, ok := c.Get("A")
	require.True(t, ok)

	require.True(t, c.Put("C", []byte("c")))

	_, ok = c.Get("B")
	assert.False(t, ok, "B should have been evicted")
	_, ok = c.Get("A")
	assert.True(t, ok, "A should survive after being promoted")
	assert.Equal(t, []string{"B"}, evicted)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(10)
	for i := range 10 {
		require.True(t, c.Put(fmt.Sprintf("%d", i), []byte("v")))
	}

	// each entry costs 2 bytes, so only the last five survive
	assert.Equal(t, []string{"9", "8", "7", "6", "5"}, c.Keys())
	assert.Equal(t, 10, c.Size())
	assert.Equal(t, int64(5), c.Stats().Evictions)
}

func TestLRU_EvictionCallbackMayReenter(t *testing.T) {
	t.Parallel()

	var c *cache.LRU
	var seen []int
	c = cache.NewLRU(4, cache.WithEvictionCallback(func(_ string, _ []byte) {
		// would deadlock if callbacks ran under the cache lock
		seen = append(seen, c.Len())
	}))

	require.True(t, c.Put("a", []byte("1")))
	require.True(t, c.Put("b", []byte("2")))
	require.True(t, c.Put("c", []byte("3")))

	assert.Equal(t, []int{2}, seen)
}

func TestLRU_Stats(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(64)
	require.True(t, c.Put("a", []byte("1")))
	c.Get("a")
	c.Get("missing")
	c.Put("huge", make([]byte, 100))

	st := c.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 2, st.UsedBytes)
	assert.Equal(t, 64, st.Capacity)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Rejections)
}

// model is a naive reference implementation used to cross-check the arena LRU.
type model struct {
	capacity int
	order    []string // MRU first
	values   map[string][]byte
}

func (m *model) size() int {
	total := 0
	for k, v := range m.values {
		total += len(k) + len(v)
	}
	return total
}

func (m *model) touch(key string) {
	m.order = slices.DeleteFunc(m.order, func(k string) bool { return k == key })
	m.order = append([]string{key}, m.order...)
}

func (m *model) evictFor(extra int, keep string) {
	for m.size()+extra > m.capacity {
		last := m.order[len(m.order)-1]
		if last == keep {
			return
		}
		m.order = m.order[:len(m.order)-1]
		delete(m.values, last)
	}
}

func (m *model) put(key string, value []byte, mustExist, mustBeAbsent bool) bool {
	if len(key)+len(value) > m.capacity {
		return false
	}
	old, exists := m.values[key]
	if (mustExist && !exists) || (mustBeAbsent && exists) {
		return false
	}
	if exists {
		m.touch(key)
		m.evictFor(len(value)-len(old), key)
	} else {
		m.evictFor(len(key)+len(value), "")
		m.order = append([]string{key}, m.order...)
	}
	m.values[key] = value
	return true
}

func TestLRU_MatchesReferenceModel(t *testing.T) {
	t.Parallel()

	const capacity = 64
	rng := rand.New(rand.NewSource(42))
	c := cache.NewLRU(capacity)
	m := &model{capacity: capacity, order: []string{}, values: map[string][]byte{}}

	for i := range 5000 {
		key := fmt.Sprintf("k%d", rng.Intn(20))
		value := make([]byte, rng.Intn(40))

		switch op := rng.Intn(5); op {
		case 0:
			assert.Equal(t, m.put(key, value, false, false), c.Put(key, value), "op %d put", i)
		case 1:
			assert.Equal(t, m.put(key, value, false, true), c.PutIfAbsent(key, value), "op %d putIfAbsent", i)
		case 2:
			assert.Equal(t, m.put(key, value, true, false), c.Set(key, value), "op %d set", i)
		case 3:
			_, exists := m.values[key]
			if exists {
				m.order = slices.DeleteFunc(m.order, func(k string) bool { return k == key })
				delete(m.values, key)
			}
			assert.Equal(t, exists, c.Delete(key), "op %d delete", i)
		case 4:
			want, exists := m.values[key]
			if exists {
				m.touch(key)
			}
			got, ok := c.Get(key)
			assert.Equal(t, exists, ok, "op %d get", i)
			if exists {
				assert.Equal(t, len(want), len(got))
			}
		}

		require.LessOrEqual(t, c.Size(), capacity)
		require.Equal(t, m.size(), c.Size(), "op %d size", i)
		require.Equal(t, m.order, c.Keys(), "op %d order", i)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	const capacity = 1024
	c := cache.NewLRU(capacity)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 2000 {
				key := fmt.Sprintf("g%d-%d", g, i%50)
				c.Put(key, []byte("value"))
				c.Get(key)
				if i%7 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	keys := c.Keys()
	assert.Equal(t, len(keys), c.Len())

	total := 0
	for _, k := range keys {
		v, ok := c.Get(k)
		require.True(t, ok)
		total += len(k) + len(v)
	}
	assert.Equal(t, total, c.Size())
	assert.LessOrEqual(t, c.Size(), capacity)
}
