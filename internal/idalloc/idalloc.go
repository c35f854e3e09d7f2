// Package idalloc provides per-kind monotonic 64-bit identifier allocation.
package idalloc

import "sync/atomic"

// Kind names a family of identifiers (one counter per kind).
type Kind string

const (
	KindMemory       Kind = "memory"
	KindHistory      Kind = "history"
	KindEntity       Kind = "entity"
	KindRelationship Kind = "relationship"
	KindChannel      Kind = "channel"
	KindMembership   Kind = "membership"
	KindTask         Kind = "task"
)

// Allocator hands out strictly increasing uint64 ids, one counter per Kind.
// Safe for concurrent use; Next never blocks.
type Allocator struct {
	counters map[Kind]*atomic.Uint64
}

// New creates an Allocator with a fresh zero counter for each of the given
// kinds. Calling Next with a kind not passed to New panics, the same way an
// unregistered Store kind would: it is a programmer error, not a runtime one.
func New(kinds ...Kind) *Allocator {
	a := &Allocator{counters: make(map[Kind]*atomic.Uint64, len(kinds))}
	for _, k := range kinds {
		a.counters[k] = &atomic.Uint64{}
	}
	return a
}

// Next returns the next id for kind, starting at 1.
func (a *Allocator) Next(kind Kind) uint64 {
	c, ok := a.counters[kind]
	if !ok {
		panic("idalloc: unregistered kind " + string(kind))
	}
	return c.Add(1)
}

// Restore sets the counter for kind so that the next Next() call returns
// max+1. Used on snapshot restore once the highest id of each kind in the
// loaded records is known. Restoring to a value lower than the current
// counter is a no-op (ids are never reused even across a restore that sees
// a smaller snapshot than what has already been allocated in this process).
func (a *Allocator) Restore(kind Kind, maxID uint64) {
	c, ok := a.counters[kind]
	if !ok {
		panic("idalloc: unregistered kind " + string(kind))
	}
	for {
		cur := c.Load()
		if maxID <= cur {
			return
		}
		if c.CompareAndSwap(cur, maxID) {
			return
		}
	}
}

// Peek returns the current counter value for kind without incrementing it.
func (a *Allocator) Peek(kind Kind) uint64 {
	c, ok := a.counters[kind]
	if !ok {
		panic("idalloc: unregistered kind " + string(kind))
	}
	return c.Load()
}
