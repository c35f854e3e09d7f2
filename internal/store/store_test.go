package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapInsertGet(t *testing.T) {
	m := NewMap[uint64, string]()
	require.True(t, m.Insert(1, "a"))
	require.False(t, m.Insert(1, "b"))

	v, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	_, ok = m.Get(2)
	require.False(t, ok)
}

func TestMapUpdateInPlace(t *testing.T) {
	m := NewMap[uint64, int]()
	m.Insert(1, 10)
	ok := m.UpdateInPlace(1, func(v int) int { return v + 5 })
	require.True(t, ok)
	v, _ := m.Get(1)
	require.Equal(t, 15, v)

	require.False(t, m.UpdateInPlace(2, func(v int) int { return v }))
}

func TestMapIterSnapshotAndCount(t *testing.T) {
	m := NewMap[uint64, int]()
	for i := uint64(1); i <= 5; i++ {
		m.Insert(i, int(i)*10)
	}
	require.Equal(t, 5, m.Count())
	snap := m.IterSnapshot()
	require.Len(t, snap, 5)
}

func TestMapConcurrentIndependentKeys(t *testing.T) {
	m := NewMap[uint64, int]()
	const n = 200
	for i := uint64(0); i < n; i++ {
		m.Insert(i, 0)
	}
	var wg sync.WaitGroup
	for i := uint64(0); i < n; i++ {
		wg.Add(1)
		go func(k uint64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.UpdateInPlace(k, func(v int) int { return v + 1 })
			}
		}(i)
	}
	wg.Wait()
	for i := uint64(0); i < n; i++ {
		v, _ := m.Get(i)
		require.Equal(t, 100, v)
	}
}

func TestMapLoadAll(t *testing.T) {
	m := NewMap[uint64, string]()
	m.Insert(1, "old")
	m.LoadAll(map[uint64]string{2: "a", 3: "b"})
	require.Equal(t, 2, m.Count())
	_, ok := m.Get(1)
	require.False(t, ok)
	v, ok := m.Get(2)
	require.True(t, ok)
	require.Equal(t, "a", v)
}
