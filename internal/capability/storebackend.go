package capability

import (
	"context"

	"github.com/nodenestor/hiveminddb/internal/model"
)

// StoreSnapshot is every record-kind slice that makes up the engine's
// entire persisted state, the same shape snapshot.Document serializes to
// snapshot.json (spec.md §4.9). A StoreBackend persists/loads this same
// shape relationally or document-wise instead.
type StoreSnapshot struct {
	Memories      []model.Memory
	History       []model.MemoryHistory
	Entities      []model.Entity
	Relationships []model.Relationship
	Channels      []model.Channel
	Memberships   []model.ChannelMembership
	Agents        []model.Agent
	Tasks         []model.Task
}

// StoreBackend is a durable alternative to the default in-memory
// Store + snapshot.json pairing (spec.md §11): postgres and mongo
// implementations persist the same record kinds relationally/document-
// wise. The core engine never depends on this interface directly — only
// internal/snapshot does, as an alternative write/restore target.
type StoreBackend interface {
	Save(ctx context.Context, snap StoreSnapshot) error
	Load(ctx context.Context) (StoreSnapshot, bool, error)
	Name() string
}
