package engine

import (
	"context"
	"testing"
	"time"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestEngine(opts ...Option) *Engine {
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory, idalloc.KindEntity, idalloc.KindRelationship, idalloc.KindTask)
	idx := embedindex.New()
	b := bus.New(8)
	return New(st, ids, idx, b, opts...)
}

func TestAddAssignsIDAndRecordsHistory(t *testing.T) {
	e := newTestEngine()
	m, err := e.Add(context.Background(), AddMemoryInput{Content: "the sky is blue", Kind: model.KindFact})
	require.NoError(t, err)
	require.Equal(t, uint64(1), m.ID)
	require.False(t, m.ValidFrom.IsZero())

	hist, err := e.History(m.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, model.OpAdd, hist[0].Operation)
}

func TestAddHistoryTimestampNeverAfterCreatedAt(t *testing.T) {
	// A real clock advances between successive calls, so the history
	// record's timestamp must reuse Add's own `now` rather than call the
	// clock again after CreatedAt is already set.
	tick := 0
	e := newTestEngine(WithClock(func() time.Time {
		tick++
		return time.Date(2026, 1, 1, 0, 0, tick, 0, time.UTC)
	}))
	m, err := e.Add(context.Background(), AddMemoryInput{Content: "the sky is blue"})
	require.NoError(t, err)

	hist, err := e.History(m.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.False(t, hist[0].Timestamp.After(m.CreatedAt))
}

func TestAddRejectsEmptyContent(t *testing.T) {
	e := newTestEngine()
	_, err := e.Add(context.Background(), AddMemoryInput{Content: "   "})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestUpdateAppendsHistoryAndBumpsUpdatedAt(t *testing.T) {
	e := newTestEngine()
	m, _ := e.Add(context.Background(), AddMemoryInput{Content: "v1"})
	newContent := "v2"
	updated, err := e.Update(context.Background(), m.ID, UpdatePatch{Content: &newContent}, "correction", "agent-1")
	require.NoError(t, err)
	require.Equal(t, "v2", updated.Content)
	require.True(t, updated.UpdatedAt.After(m.UpdatedAt) || updated.UpdatedAt.Equal(m.UpdatedAt))

	hist, _ := e.History(m.ID)
	require.Len(t, hist, 2)
	require.Equal(t, model.OpUpdate, hist[1].Operation)
	require.Equal(t, "v1", *hist[1].OldContent)
	require.Equal(t, "v2", *hist[1].NewContent)
}

func TestInvalidateIsAWriteNotADelete(t *testing.T) {
	e := newTestEngine()
	m, _ := e.Add(context.Background(), AddMemoryInput{Content: "ephemeral"})
	require.NoError(t, e.Invalidate(context.Background(), m.ID, "superseded", "agent-1"))

	got, err := e.Get(m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ValidUntil)

	hist, _ := e.History(m.ID)
	require.Len(t, hist, 2)
	require.Equal(t, model.OpInvalidate, hist[1].Operation)
}

func TestInvalidateTwiceReturnsAlreadyInvalid(t *testing.T) {
	e := newTestEngine()
	m, _ := e.Add(context.Background(), AddMemoryInput{Content: "x"})
	require.NoError(t, e.Invalidate(context.Background(), m.ID, "r", "a"))
	err := e.Invalidate(context.Background(), m.ID, "r", "a")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindAlreadyInvalid, appErr.Kind)
}

func TestListFiltersByTagsAgentAndValidity(t *testing.T) {
	e := newTestEngine()
	agentA, agentB := "agent-a", "agent-b"
	m1, _ := e.Add(context.Background(), AddMemoryInput{Content: "a1", AgentID: &agentA, Tags: []string{"x", "y"}})
	_, _ = e.Add(context.Background(), AddMemoryInput{Content: "a2", AgentID: &agentB, Tags: []string{"x"}})
	m3, _ := e.Add(context.Background(), AddMemoryInput{Content: "a3", AgentID: &agentA, Tags: []string{"x", "y"}})
	require.NoError(t, e.Invalidate(context.Background(), m3.ID, "gone", "t"))

	got := e.List(ListFilter{AgentID: &agentA, Tags: []string{"x", "y"}})
	require.Len(t, got, 1)
	require.Equal(t, m1.ID, got[0].ID)

	gotAll := e.List(ListFilter{AgentID: &agentA, Tags: []string{"x", "y"}, IncludeInvalidated: true})
	require.Len(t, gotAll, 2)
}

func TestApplyConflictResolutionAdd(t *testing.T) {
	e := newTestEngine()
	m, err := e.ApplyConflictResolution(context.Background(),
		capability.ExtractedFact{Content: "new fact", Kind: model.KindFact},
		capability.ConflictVerdict{Action: capability.ConflictAdd},
		"extractor-1")
	require.NoError(t, err)
	require.Equal(t, "new fact", m.Content)
}

func TestApplyConflictResolutionUpdate(t *testing.T) {
	e := newTestEngine()
	existing, _ := e.Add(context.Background(), AddMemoryInput{Content: "old"})
	m, err := e.ApplyConflictResolution(context.Background(),
		capability.ExtractedFact{Content: "ignored"},
		capability.ConflictVerdict{Action: capability.ConflictUpdate, ExistingID: existing.ID, UpdatedContent: "merged", Reason: "superseding detail"},
		"extractor-1")
	require.NoError(t, err)
	require.Equal(t, "merged", m.Content)
}

func TestApplyConflictResolutionNoop(t *testing.T) {
	e := newTestEngine()
	existing, _ := e.Add(context.Background(), AddMemoryInput{Content: "stable"})
	m, err := e.ApplyConflictResolution(context.Background(),
		capability.ExtractedFact{Content: "duplicate"},
		capability.ConflictVerdict{Action: capability.ConflictNoop, ExistingID: existing.ID},
		"extractor-1")
	require.NoError(t, err)
	require.Equal(t, "stable", m.Content)
}

func TestAddPublishesEventOnFirehose(t *testing.T) {
	e := newTestEngine()
	r := e.bus.Subscribe(firehose)
	_, err := e.Add(context.Background(), AddMemoryInput{Content: "observed"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, ok := r.Receive(ctx)
	require.True(t, ok)
	require.Equal(t, capability.EventMemoryAdded, got.Event.Kind)
}

func TestAddEmbedsWhenEmbedderConfigured(t *testing.T) {
	e := newTestEngine(WithEmbedder(stubEmbedder{dim: 3}))
	m, err := e.Add(context.Background(), AddMemoryInput{Content: "vectorized"})
	require.NoError(t, err)

	results, err := e.embeds.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, m.ID, results[0].ID)
}

type stubEmbedder struct{ dim int }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, s.dim)
	v[0] = 1
	return v, nil
}
func (s stubEmbedder) ModelName() string { return "stub" }
func (s stubEmbedder) Dimension() int    { return s.dim }
