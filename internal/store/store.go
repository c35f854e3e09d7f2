// Package store holds the engine's in-memory record families: one
// concurrent map per entity kind (memories, history, entities,
// relationships, channels, memberships, agents, tasks). Every map offers
// insert/get/update_in_place/iter_snapshot/count with independent per-key
// locking so that updates to unrelated keys never serialize against each
// other; Insert and LoadAll take the map-wide lock.
package store

import (
	"sync"
	"sync/atomic"
)

// cell wraps a stored value with its own lock so concurrent writers to
// different keys in the same Map never contend on a single mutex when
// updating.
type cell[V any] struct {
	mu    sync.Mutex
	value V
}

// Map is a concurrent key-value store for one entity kind. The zero value
// is not usable; use NewMap.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]*cell[V]
	gen  atomic.Uint64
}

// NewMap creates an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{data: make(map[K]*cell[V])}
}

// Insert adds a new record under key. Returns false without modifying
// anything if the key already exists (ids are never reused, so callers
// that see false have a bug upstream in id allocation).
func (m *Map[K, V]) Insert(key K, value V) bool {
	m.mu.Lock()
	if _, exists := m.data[key]; exists {
		m.mu.Unlock()
		return false
	}
	c := &cell[V]{value: value}
	m.data[key] = c
	m.mu.Unlock()
	m.gen.Add(1)
	return true
}

// Get returns a copy of the value at key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	c, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	c.mu.Lock()
	v := c.value
	c.mu.Unlock()
	return v, true
}

// UpdateInPlace atomically applies fn to the current value at key and
// stores the result. fn is called under the per-key lock only — never
// under the map-wide lock — so concurrent updates to other keys proceed
// unimpeded. Returns false if key does not exist.
func (m *Map[K, V]) UpdateInPlace(key K, fn func(V) V) bool {
	m.mu.RLock()
	c, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	c.mu.Lock()
	c.value = fn(c.value)
	c.mu.Unlock()
	m.gen.Add(1)
	return true
}

// IterSnapshot returns a point-in-time copy of every value currently in the
// map. Because each value is copied under its own per-key lock (not a
// single global lock held for the whole iteration), a writer can commit a
// change to key B while the snapshot is still copying key A; the result is
// a valid, if not perfectly linearizable, point-in-time view — consistent
// with spec.md §4.2 ("Iteration returns a point-in-time snapshot of
// values").
func (m *Map[K, V]) IterSnapshot() []V {
	m.mu.RLock()
	cells := make([]*cell[V], 0, len(m.data))
	for _, c := range m.data {
		cells = append(cells, c)
	}
	m.mu.RUnlock()

	out := make([]V, 0, len(cells))
	for _, c := range cells {
		c.mu.Lock()
		out = append(out, c.value)
		c.mu.Unlock()
	}
	return out
}

// Count returns the number of records currently stored.
func (m *Map[K, V]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// LoadAll replaces the map's contents wholesale. Used only by the snapshot
// engine's restore path, before any request traffic is being served.
func (m *Map[K, V]) LoadAll(values map[K]V) {
	m.mu.Lock()
	m.data = make(map[K]*cell[V], len(values))
	for k, v := range values {
		m.data[k] = &cell[V]{value: v}
	}
	m.mu.Unlock()
	m.gen.Add(1)
}

// Generation returns the number of writes (Insert/UpdateInPlace/LoadAll)
// this map has ever accepted. Monotonically non-decreasing; used by
// Store.Generation to drive cache invalidation.
func (m *Map[K, V]) Generation() uint64 {
	return m.gen.Load()
}
