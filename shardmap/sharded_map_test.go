package shardmap

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertGet(t *testing.T) {
	m := New(8, 4)

	res := m.Insert([]byte("a"), []byte("1"))
	assert.Equal(t, Inserted, res)

	v, ok := m.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))
}

func TestInsertReturnsUpdatedOnOverwrite(t *testing.T) {
	m := New(8, 4)

	assert.Equal(t, Inserted, m.Insert([]byte("a"), []byte("1")))
	assert.Equal(t, Updated, m.Insert([]byte("a"), []byte("2")))
	assert.Equal(t, 1, m.Size())

	v, _ := m.Get([]byte("a"))
	assert.Equal(t, "2", string(v))
}

func TestRemove(t *testing.T) {
	m := New(8, 4)
	m.Insert([]byte("a"), []byte("1"))

	assert.True(t, m.Remove([]byte("a")))
	assert.False(t, m.Remove([]byte("a")))

	_, ok := m.Get([]byte("a"))
	assert.False(t, ok)
	assert.False(t, m.Contains([]byte("a")))
}

func TestGetReturnsCopyNotReference(t *testing.T) {
	m := New(4, 4)
	original := []byte("value")
	m.Insert([]byte("k"), original)

	got, ok := m.Get([]byte("k"))
	assert.True(t, ok)
	got[0] = 'X'

	got2, _ := m.Get([]byte("k"))
	assert.Equal(t, "value", string(got2))
}

func TestSizeTracksDistinctKeys(t *testing.T) {
	m := New(16, 4)
	for i := 0; i < 100; i++ {
		m.Insert([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
	}
	assert.Equal(t, 100, m.Size())

	for i := 0; i < 50; i++ {
		m.Remove([]byte(fmt.Sprintf("k%d", i)))
	}
	assert.Equal(t, 50, m.Size())
}

func TestClearResetsSizeAndContents(t *testing.T) {
	m := New(8, 4)
	for i := 0; i < 10; i++ {
		m.Insert([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
	}
	m.Clear()
	assert.Equal(t, 0, m.Size())
	_, ok := m.Get([]byte("k0"))
	assert.False(t, ok)
}

func TestForEachVisitsEveryEntryOnce(t *testing.T) {
	m := New(8, 4)
	want := map[string]string{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k%d", i)
		v := fmt.Sprintf("v%d", i)
		want[k] = v
		m.Insert([]byte(k), []byte(v))
	}

	seen := map[string]string{}
	m.ForEach(func(key, value []byte) {
		seen[string(key)] = string(value)
	})
	assert.Equal(t, want, seen)
}

func TestStatsSnapshot(t *testing.T) {
	m := New(4, 4)
	for i := 0; i < 8; i++ {
		m.Insert([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
	}
	st := m.StatsSnapshot()
	assert.Equal(t, 8, st.Items)
	assert.Equal(t, 4, st.Shards)
	assert.Len(t, st.PerShardSizes, 4)
	assert.Equal(t, 2.0, st.LoadFactor)
}

func TestConcurrentDisjointInsertsReachExpectedSize(t *testing.T) {
	m := New(64, 16)
	const threads = 10
	const perThread = 1000

	var wg sync.WaitGroup
	for tid := 0; tid < threads; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			for i := 0; i < perThread; i++ {
				key := fmt.Sprintf("t%d-k%d", tid, i)
				m.Insert([]byte(key), []byte("v"))
			}
		}(tid)
	}
	wg.Wait()

	assert.Equal(t, threads*perThread, m.Size())
	for tid := 0; tid < threads; tid++ {
		for i := 0; i < perThread; i += 97 {
			key := fmt.Sprintf("t%d-k%d", tid, i)
			assert.True(t, m.Contains([]byte(key)))
		}
	}
}

func TestConcurrentMixedOpsDoNotFabricateValues(t *testing.T) {
	m := New(32, 8)
	const keys = 50
	values := make(map[int][]byte)
	for i := 0; i < keys; i++ {
		values[i] = []byte(fmt.Sprintf("value-%d", i))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (seed + i) % keys
				key := []byte(fmt.Sprintf("k%d", k))
				switch i % 3 {
				case 0:
					m.Insert(key, values[k])
				case 1:
					if v, ok := m.Get(key); ok {
						assert.Equal(t, values[k], v)
					}
				case 2:
					m.Contains(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, m.Size(), 0)
	assert.LessOrEqual(t, m.Size(), keys)
}
