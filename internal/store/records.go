package store

import "github.com/nodenestor/hiveminddb/internal/model"

// Store aggregates the record-kind maps that make up the engine's entire
// persisted state. It owns every record; all other components see
// copy-on-read values or hold only ids (spec.md §3, "Ownership").
type Store struct {
	Memories      *Map[uint64, model.Memory]
	History       *Map[uint64, model.MemoryHistory]
	Entities      *Map[uint64, model.Entity]
	Relationships *Map[uint64, model.Relationship]
	Channels      *Map[uint64, model.Channel]
	Memberships   *Map[uint64, model.ChannelMembership]
	Agents        *Map[string, model.Agent]
	Tasks         *Map[uint64, model.Task]
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		Memories:      NewMap[uint64, model.Memory](),
		History:       NewMap[uint64, model.MemoryHistory](),
		Entities:      NewMap[uint64, model.Entity](),
		Relationships: NewMap[uint64, model.Relationship](),
		Channels:      NewMap[uint64, model.Channel](),
		Memberships:   NewMap[uint64, model.ChannelMembership](),
		Agents:        NewMap[string, model.Agent](),
		Tasks:         NewMap[uint64, model.Task](),
	}
}

// Generation sums every record map's write generation counter. It never
// decreases, and advances on any mutation to any record kind, which is
// enough for a cache to detect "something changed since I cached this" —
// the search-result cache (SPEC_FULL.md §11) keys its entries to the value
// observed at cache-fill time and treats any change as a miss.
func (s *Store) Generation() uint64 {
	return s.Memories.Generation() + s.History.Generation() + s.Entities.Generation() +
		s.Relationships.Generation() + s.Channels.Generation() + s.Memberships.Generation() +
		s.Agents.Generation() + s.Tasks.Generation()
}

// HistoryFor returns the audit records for memoryID, ordered by ID (which
// is also Timestamp order per spec.md §3 invariant).
func (s *Store) HistoryFor(memoryID uint64) []model.MemoryHistory {
	all := s.History.IterSnapshot()
	out := make([]model.MemoryHistory, 0)
	for _, h := range all {
		if h.MemoryID == memoryID {
			out = append(out, h)
		}
	}
	sortHistoryByID(out)
	return out
}

func sortHistoryByID(h []model.MemoryHistory) {
	// insertion sort: history lists per memory are short, and records are
	// appended in id order already in the overwhelming common case.
	for i := 1; i < len(h); i++ {
		for j := i; j > 0 && h[j-1].ID > h[j].ID; j-- {
			h[j-1], h[j] = h[j], h[j-1]
		}
	}
}

// NeighborsOf returns relationships whose SourceEntityID is entityID, in
// insertion order (by relationship ID).
func (s *Store) NeighborsOf(entityID uint64) []model.Relationship {
	all := s.Relationships.IterSnapshot()
	out := make([]model.Relationship, 0)
	for _, r := range all {
		if r.SourceEntityID == entityID {
			out = append(out, r)
		}
	}
	sortRelsByID(out)
	return out
}

func sortRelsByID(r []model.Relationship) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j-1].ID > r[j].ID; j-- {
			r[j-1], r[j] = r[j], r[j-1]
		}
	}
}

// FindEntityByName returns the first entity (by insertion/id order) whose
// Name matches, per spec.md §3 ("lookup-by-name returns first match by
// insertion order").
func (s *Store) FindEntityByName(name string) (model.Entity, bool) {
	all := s.Entities.IterSnapshot()
	var best model.Entity
	found := false
	for _, e := range all {
		if e.Name != name {
			continue
		}
		if !found || e.ID < best.ID {
			best = e
			found = true
		}
	}
	return best, found
}
