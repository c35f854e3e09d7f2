// Package engine implements the Memory manager (C4) and Graph manager
// (C5): concurrent CRUD over memories, entities, and relationships;
// bi-temporal invalidation with audit-log emission; bounded graph
// traversal. It is the core of HiveMindDB (spec.md §4.4-4.5).
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/policy"
	"github.com/nodenestor/hiveminddb/internal/store"
)

// DefaultMaxTraversalDepth bounds graph traversal to prevent runaway
// queries (spec.md §4.5).
const DefaultMaxTraversalDepth = 10

// Clock lets tests inject a deterministic time source; production code
// uses the zero value, which calls time.Now.
type Clock func() time.Time

// Engine bundles the Store, id allocator, embedding index, channel bus,
// and the optional external capabilities (Embedder, ReplicationSink) that
// the memory and graph managers call through. It serializes concurrent
// writers to a single record via the Store's per-key locks, never across
// an I/O call (spec.md §5).
type Engine struct {
	store    *store.Store
	ids      *idalloc.Allocator
	embeds   *embedindex.Index
	bus      *bus.Bus
	embedder  capability.Embedder
	extractor capability.Extractor
	repl      capability.ReplicationSink
	accessPolicy *policy.Engine
	vectorMirror capability.VectorIndex

	maxTraversalDepth int
	now               Clock

	// serializes "many memories" conflict-resolution transactions so that
	// an ADD racing an UPDATE against the same extractor decision never
	// interleaves; per-record mutations still only take the Store's
	// per-key lock (spec.md §5: "no cross-key transactions").
	resolveMu sync.Mutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithEmbedder sets the Embedder capability. Absent, adds/updates simply
// skip embedding (spec.md §7: "embedder absence is always tolerated").
func WithEmbedder(e capability.Embedder) Option { return func(en *Engine) { en.embedder = e } }

// WithExtractor sets the Extractor capability. Absent, POST /extract
// returns a validation error rather than silently doing nothing
// (spec.md §7).
func WithExtractor(ex capability.Extractor) Option { return func(en *Engine) { en.extractor = ex } }

// WithReplication sets the ReplicationSink capability.
func WithReplication(r capability.ReplicationSink) Option {
	return func(en *Engine) { en.repl = r }
}

// WithAccessPolicy sets an OPA-backed ownership policy that route
// handlers can enforce via Authorize. Absent, Authorize always allows
// (spec.md's API-key/JWT gate is the only access control by default).
func WithAccessPolicy(p *policy.Engine) Option {
	return func(en *Engine) { en.accessPolicy = p }
}

// WithVectorIndex sets an external capability.VectorIndex mirrored
// alongside the in-process embedindex.Index on every embed/remove. The
// mirror is best-effort and never consulted for search: embedindex.Index
// stays authoritative (spec.md §11).
func WithVectorIndex(v capability.VectorIndex) Option {
	return func(en *Engine) { en.vectorMirror = v }
}

// WithMaxTraversalDepth overrides DefaultMaxTraversalDepth.
func WithMaxTraversalDepth(d int) Option {
	return func(en *Engine) {
		if d > 0 {
			en.maxTraversalDepth = d
		}
	}
}

// WithClock overrides the Engine's time source; used by tests.
func WithClock(c Clock) Option { return func(en *Engine) { en.now = c } }

// New creates an Engine over st, ids, and embeds, which must already be
// registered with the kinds this package uses (idalloc.KindMemory,
// KindHistory, KindEntity, KindRelationship, KindChannel, KindMembership,
// KindTask).
func New(st *store.Store, ids *idalloc.Allocator, embeds *embedindex.Index, b *bus.Bus, opts ...Option) *Engine {
	en := &Engine{
		store:             st,
		ids:               ids,
		embeds:            embeds,
		bus:               b,
		maxTraversalDepth: DefaultMaxTraversalDepth,
		now:               time.Now,
	}
	for _, o := range opts {
		o(en)
	}
	return en
}

func (e *Engine) clock() time.Time { return e.now() }

// Embedder returns the configured Embedder capability, or nil.
func (e *Engine) Embedder() capability.Embedder { return e.embedder }

// Extractor returns the configured Extractor capability, or nil.
func (e *Engine) Extractor() capability.Extractor { return e.extractor }

// SearchEmbeddings ranks indexed memories against query by cosine
// similarity, delegating to the in-process embedding index. Used by
// internal/search to compute the vector-similarity half of score fusion.
func (e *Engine) SearchEmbeddings(query []float32, k int) ([]embedindex.Scored, error) {
	return e.embeds.Search(query, k)
}

// publish emits a bus event on the given channel name (empty for
// non-channel-scoped memory/graph events, which are broadcast on a
// synthetic "*" firehose channel so WS clients can subscribe to "all
// events" without per-channel plumbing) and best-effort forwards it to
// replication, outside any per-record lock (spec.md §4.10).
func (e *Engine) publish(ctx context.Context, kind capability.EventKind, channel string, payload interface{}) {
	event := capability.Event{Kind: kind, Channel: channel, Timestamp: e.clock(), Payload: payload}
	if e.bus != nil {
		e.bus.Publish(firehose, event)
		if channel != "" {
			e.bus.Publish(channel, event)
		}
	}
	if e.repl != nil {
		if err := e.repl.Publish(ctx, event); err != nil {
			log.Warn("replication publish failed", "kind", kind, "err", err)
		}
	}
}

// CountMemories returns the number of memory records, including invalidated
// ones (used by GET /status).
func (e *Engine) CountMemories() int { return e.store.Memories.Count() }

// CountEntities returns the number of graph entities.
func (e *Engine) CountEntities() int { return e.store.Entities.Count() }

// CountRelationships returns the number of graph edges.
func (e *Engine) CountRelationships() int { return e.store.Relationships.Count() }

// CountChannels returns the number of registered channels.
func (e *Engine) CountChannels() int { return e.store.Channels.Count() }

// CountAgents returns the number of registered agents.
func (e *Engine) CountAgents() int { return e.store.Agents.Count() }

// Generation returns the store's current write generation, advancing on
// every mutation across every record kind (capability.Cache consumers use
// this to invalidate stale search-result entries).
func (e *Engine) Generation() uint64 { return e.store.Generation() }

// ReplicationEnabled reports whether a ReplicationSink is configured.
func (e *Engine) ReplicationEnabled() bool { return e.repl != nil }

// Authorize evaluates the configured access policy for operation against
// m's ownership, using callerAgentID/callerUserID as the requesting
// identity. Returns nil when no policy is configured.
func (e *Engine) Authorize(ctx context.Context, operation string, m model.Memory, callerAgentID, callerUserID string) error {
	if e.accessPolicy == nil {
		return nil
	}
	allowed, err := e.accessPolicy.IsAllowed(ctx, operation, policy.Subject{
		OwnerAgentID: m.AgentID,
		OwnerUserID:  m.UserID,
	}, policy.Context{AgentID: callerAgentID, UserID: callerUserID})
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("memory", "access policy denied "+operation)
	}
	return nil
}

// firehose is the synthetic channel name every event is also published
// to, so a single WebSocket subscription can observe the whole event
// stream (spec.md §6 does not name such a channel explicitly, but the
// supplied /ws contract implies subscribers pick channel names
// themselves; "*" is reserved and cannot be created via POST /channels).
const firehose = "*"
