// Package capability defines the external collaborator interfaces the
// engine calls through but never depends on concretely: Embedder,
// Extractor, and ReplicationSink (spec.md §1). All three are optional —
// the engine must work correctly with any of them absent or stubbed.
package capability

import (
	"context"
	"time"

	"github.com/nodenestor/hiveminddb/internal/model"
)

// Embedder maps text to a fixed-dimension unit vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimension() int
}

// ExtractedFact is one candidate memory produced by the Extractor from
// conversation text.
type ExtractedFact struct {
	Content    string
	Kind       model.MemoryKind
	Confidence float64
	Tags       []string
}

// ExtractedEntity is a candidate graph entity produced by the Extractor.
type ExtractedEntity struct {
	Name        string
	EntityType  string
	Description string
}

// ExtractedRelation is a candidate graph edge produced by the Extractor,
// referencing entities by name (resolved to ids by the caller).
type ExtractedRelation struct {
	SourceName   string
	TargetName   string
	RelationType string
	Weight       float64
}

// ConflictVerdict is the Extractor's decision for one candidate fact
// against a set of existing similar memories (spec.md §4.4).
type ConflictVerdict struct {
	Action          ConflictAction
	ExistingID      uint64 // set when Action == ConflictUpdate
	UpdatedContent  string // set when Action == ConflictUpdate
	Reason          string
}

// ConflictAction is the verdict the Extractor returns for a candidate
// fact: add it fresh, update an existing memory, or do nothing.
type ConflictAction string

const (
	ConflictAdd    ConflictAction = "add"
	ConflictUpdate ConflictAction = "update"
	ConflictNoop   ConflictAction = "noop"
)

// Message is one turn of conversation handed to the Extractor.
type Message struct {
	Role    string
	Content string
}

// Extraction is everything the Extractor proposes from one batch of
// conversation messages.
type Extraction struct {
	Facts     []ExtractedFact
	Entities  []ExtractedEntity
	Relations []ExtractedRelation
}

// Extractor turns conversation text into proposed memories/entities/
// relations and, given a candidate plus similar existing memories,
// resolves conflicts.
type Extractor interface {
	Extract(ctx context.Context, messages []Message, agentID, userID *string) (Extraction, error)
	ResolveConflict(ctx context.Context, candidate ExtractedFact, existing []model.Memory) (ConflictVerdict, error)
}

// Event is the payload delivered to the channel bus and, optionally, to
// the replication sink: the post-mutation record plus its kind.
type Event struct {
	Kind      EventKind
	Channel   string // empty for non-channel-scoped events
	Timestamp time.Time
	Payload   interface{}
}

// EventKind enumerates the event kinds published by the managers
// (spec.md §4.7).
type EventKind string

const (
	EventMemoryAdded        EventKind = "memory_added"
	EventMemoryUpdated      EventKind = "memory_updated"
	EventMemoryInvalidated  EventKind = "memory_invalidated"
	EventEntityAdded        EventKind = "entity_added"
	EventRelationshipAdded  EventKind = "relationship_added"
	EventChannelShare       EventKind = "channel_share"
	EventTaskCreated        EventKind = "task_created"
	EventTaskStateChanged   EventKind = "task_state_changed"
)

// ReplicationSink forwards mutation events to an external consensus layer,
// best-effort (spec.md §4.10). Failures are logged by the caller and never
// roll back the local mutation.
type ReplicationSink interface {
	Publish(ctx context.Context, event Event) error
}
