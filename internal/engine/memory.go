package engine

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// AddMemoryInput is the caller-supplied content of a new memory. ValidFrom
// is always set by the engine to the add time; a caller cannot back-date it
// (spec.md §9, Open Question (b)).
type AddMemoryInput struct {
	Content    string
	Kind       model.MemoryKind
	AgentID    *string
	UserID     *string
	SessionID  *string
	Confidence float64
	Source     string
	Tags       []string
	Metadata   string
}

// Add creates a new memory, assigns it an id, records an "add" audit entry,
// indexes it for embedding search if an Embedder is configured, and
// publishes a memory_added event.
func (e *Engine) Add(ctx context.Context, in AddMemoryInput) (model.Memory, error) {
	if strings.TrimSpace(in.Content) == "" {
		return model.Memory{}, apperr.Validation("content", "must not be empty")
	}
	now := e.clock()
	m := model.Memory{
		ID:         e.ids.Next(idalloc.KindMemory),
		Content:    in.Content,
		Kind:       in.Kind,
		AgentID:    in.AgentID,
		UserID:     in.UserID,
		SessionID:  in.SessionID,
		Confidence: in.Confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
		ValidFrom:  now,
		Source:     in.Source,
		Tags:       append([]string(nil), in.Tags...),
		Metadata:   in.Metadata,
	}
	e.store.Memories.Insert(m.ID, m)
	e.recordHistory(m.ID, model.OpAdd, nil, &m.Content, "created", in.Source, now)
	e.embedMemory(ctx, m)
	e.publish(ctx, capability.EventMemoryAdded, "", m)
	return m.Clone(), nil
}

// Get returns the memory with the given id.
func (e *Engine) Get(id uint64) (model.Memory, error) {
	m, ok := e.store.Memories.Get(id)
	if !ok {
		return model.Memory{}, apperr.NotFound("memory", id)
	}
	return m.Clone(), nil
}

// ListFilter selects a subset of memories. Tags must ALL match
// (spec.md §4.4). A nil AgentID/UserID means "don't filter on this field";
// IncludeInvalidated defaults to false, excluding memories whose ValidUntil
// has passed.
type ListFilter struct {
	AgentID            *string
	UserID             *string
	Tags               []string
	IncludeInvalidated bool
}

// List returns a point-in-time snapshot of memories matching filter.
func (e *Engine) List(filter ListFilter) []model.Memory {
	now := e.clock()
	all := e.store.Memories.IterSnapshot()
	out := make([]model.Memory, 0, len(all))
	for _, m := range all {
		if filter.AgentID != nil && (m.AgentID == nil || *m.AgentID != *filter.AgentID) {
			continue
		}
		if filter.UserID != nil && (m.UserID == nil || *m.UserID != *filter.UserID) {
			continue
		}
		if !m.HasTags(filter.Tags) {
			continue
		}
		if !filter.IncludeInvalidated && !m.IsValid(now) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// UpdatePatch carries the optional fields a caller may change. A nil field
// leaves the current value untouched.
type UpdatePatch struct {
	Content    *string
	Tags       []string // nil means unchanged; non-nil (incl. empty) replaces
	Confidence *float64
	Metadata   *string
}

// Update applies patch to the memory at id, appends an "update" audit
// record capturing the old and new content, re-embeds if content changed,
// and publishes a memory_updated event.
func (e *Engine) Update(ctx context.Context, id uint64, patch UpdatePatch, reason, changedBy string) (model.Memory, error) {
	existing, ok := e.store.Memories.Get(id)
	if !ok {
		return model.Memory{}, apperr.NotFound("memory", id)
	}
	oldContent := existing.Content
	contentChanged := false
	now := e.clock()

	e.store.Memories.UpdateInPlace(id, func(m model.Memory) model.Memory {
		if patch.Content != nil && *patch.Content != m.Content {
			m.Content = *patch.Content
			contentChanged = true
		}
		if patch.Tags != nil {
			m.Tags = append([]string(nil), patch.Tags...)
		}
		if patch.Confidence != nil {
			m.Confidence = *patch.Confidence
		}
		if patch.Metadata != nil {
			m.Metadata = *patch.Metadata
		}
		m.UpdatedAt = now
		return m
	})

	updated, _ := e.store.Memories.Get(id)
	e.recordHistory(id, model.OpUpdate, &oldContent, &updated.Content, reason, changedBy, now)
	if contentChanged {
		e.embedMemory(ctx, updated)
	}
	e.publish(ctx, capability.EventMemoryUpdated, "", updated)
	return updated.Clone(), nil
}

// Invalidate marks the memory at id as no longer valid as of now, appends
// an "invalidate" audit record, and publishes a memory_invalidated event.
// Invalidation is a write, never a delete (spec.md §4.4): the record and its
// history remain queryable forever.
func (e *Engine) Invalidate(ctx context.Context, id uint64, reason, changedBy string) error {
	existing, ok := e.store.Memories.Get(id)
	if !ok {
		return apperr.NotFound("memory", id)
	}
	now := e.clock()
	if !existing.IsValid(now) {
		return apperr.AlreadyInvalid(id)
	}

	e.store.Memories.UpdateInPlace(id, func(m model.Memory) model.Memory {
		if m.ValidUntil == nil || m.ValidUntil.After(now) {
			m.ValidUntil = &now
			m.UpdatedAt = now
		}
		return m
	})

	e.recordHistory(id, model.OpInvalidate, &existing.Content, nil, reason, changedBy, now)
	e.embeds.Remove(id)
	if e.vectorMirror != nil {
		if err := e.vectorMirror.Remove(ctx, id); err != nil {
			log.Warn("external vector index remove failed", "memory_id", id, "backend", e.vectorMirror.Name(), "err", err)
		}
	}
	final, _ := e.store.Memories.Get(id)
	e.publish(ctx, capability.EventMemoryInvalidated, "", final)
	return nil
}

// History returns the audit trail for the memory at id, oldest first.
func (e *Engine) History(id uint64) ([]model.MemoryHistory, error) {
	if _, ok := e.store.Memories.Get(id); !ok {
		return nil, apperr.NotFound("memory", id)
	}
	return e.store.HistoryFor(id), nil
}

func (e *Engine) recordHistory(memoryID uint64, op model.HistoryOperation, oldContent, newContent *string, reason, changedBy string, ts time.Time) {
	h := model.MemoryHistory{
		ID:         e.ids.Next(idalloc.KindHistory),
		MemoryID:   memoryID,
		Operation:  op,
		OldContent: oldContent,
		NewContent: newContent,
		Reason:     reason,
		ChangedBy:  changedBy,
		Timestamp:  ts,
	}
	e.store.History.Insert(h.ID, h)
}

// ReindexEmbeddings recomputes the embedding index from every stored
// memory. Embeddings are never snapshotted (spec.md §4.9), so a restarted
// process with an Embedder configured must rebuild the in-process index
// once at startup before serving semantic search traffic.
func (e *Engine) ReindexEmbeddings(ctx context.Context) {
	if e.embedder == nil {
		return
	}
	for _, m := range e.store.Memories.IterSnapshot() {
		e.embedMemory(ctx, m)
	}
}

// embedMemory computes and upserts the embedding for m's content if an
// Embedder is configured. Failure is logged and swallowed: the memory is
// still stored and searchable by keyword even without a vector
// (spec.md §7, embedder absence/failure is always tolerated).
func (e *Engine) embedMemory(ctx context.Context, m model.Memory) {
	if e.embedder == nil {
		return
	}
	vec, err := e.embedder.Embed(ctx, m.Content)
	if err != nil {
		log.Warn("embed failed", "memory_id", m.ID, "err", err)
		return
	}
	if err := e.embeds.Upsert(m.ID, vec); err != nil {
		log.Warn("embedding index upsert failed", "memory_id", m.ID, "err", err)
	}
	if e.vectorMirror != nil {
		if err := e.vectorMirror.Upsert(ctx, m.ID, vec); err != nil {
			log.Warn("external vector index upsert failed", "memory_id", m.ID, "backend", e.vectorMirror.Name(), "err", err)
		}
	}
}

// ApplyConflictResolution executes a verdict the Extractor has already
// computed for one candidate fact: add it as a new memory, update the
// named existing memory's content, or do nothing. Execution is
// transactional with respect to other ApplyConflictResolution calls (held
// under a single mutex) but still only ever touches one record's per-key
// lock at a time (spec.md §4.4, §5).
func (e *Engine) ApplyConflictResolution(ctx context.Context, candidate capability.ExtractedFact, verdict capability.ConflictVerdict, changedBy string) (model.Memory, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()

	switch verdict.Action {
	case capability.ConflictAdd:
		return e.Add(ctx, AddMemoryInput{
			Content:    candidate.Content,
			Kind:       candidate.Kind,
			Confidence: candidate.Confidence,
			Tags:       candidate.Tags,
			Source:     "extractor",
		})
	case capability.ConflictUpdate:
		content := verdict.UpdatedContent
		if content == "" {
			content = candidate.Content
		}
		return e.Update(ctx, verdict.ExistingID, UpdatePatch{Content: &content}, verdict.Reason, changedBy)
	case capability.ConflictNoop:
		existing, err := e.Get(verdict.ExistingID)
		if err != nil {
			return model.Memory{}, err
		}
		return existing, nil
	default:
		return model.Memory{}, apperr.Validation("verdict.action", "unknown conflict action "+string(verdict.Action))
	}
}
