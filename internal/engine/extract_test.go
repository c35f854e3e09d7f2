package engine

import (
	"context"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	extraction capability.Extraction
	extractErr error
	verdict    capability.ConflictVerdict
	verdictErr error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []capability.Message, _, _ *string) (capability.Extraction, error) {
	return f.extraction, f.extractErr
}

func (f *fakeExtractor) ResolveConflict(_ context.Context, _ capability.ExtractedFact, _ []model.Memory) (capability.ConflictVerdict, error) {
	return f.verdict, f.verdictErr
}

func newTestEngineWithExtractor(x capability.Extractor) *Engine {
	return newTestEngine(WithExtractor(x))
}

func TestExtractWithoutExtractorReturnsValidationError(t *testing.T) {
	e := newTestEngine()
	_, err := e.Extract(context.Background(), ExtractInput{})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestExtractAddsFactEntityAndRelationship(t *testing.T) {
	x := &fakeExtractor{
		extraction: capability.Extraction{
			Facts: []capability.ExtractedFact{
				{Content: "alice likes go", Kind: model.KindFact, Confidence: 0.9},
			},
			Entities: []capability.ExtractedEntity{
				{Name: "alice", EntityType: "person"},
				{Name: "go", EntityType: "language"},
			},
			Relations: []capability.ExtractedRelation{
				{SourceName: "alice", TargetName: "go", RelationType: "likes"},
			},
		},
		verdict: capability.ConflictVerdict{Action: capability.ConflictAdd},
	}
	e := newTestEngineWithExtractor(x)

	result, err := e.Extract(context.Background(), ExtractInput{Messages: []capability.Message{{Role: "user", Content: "alice likes go"}}})
	require.NoError(t, err)
	require.Equal(t, 1, result.MemoriesAdded)
	require.Equal(t, 2, result.EntitiesAdded)
	require.Equal(t, 1, result.RelationshipsAdded)
	require.Equal(t, 0, result.Skipped)
	require.Equal(t, 1, e.CountMemories())
	require.Equal(t, 2, e.CountEntities())
	require.Equal(t, 1, e.CountRelationships())
}

func TestExtractDedupesEntityByName(t *testing.T) {
	x := &fakeExtractor{}
	e := newTestEngineWithExtractor(x)
	existing, err := e.AddEntity(context.Background(), AddEntityInput{Name: "alice", EntityType: "person"})
	require.NoError(t, err)

	x.extraction = capability.Extraction{
		Entities: []capability.ExtractedEntity{{Name: "alice", EntityType: "person"}},
	}

	result, err := e.Extract(context.Background(), ExtractInput{})
	require.NoError(t, err)
	require.Equal(t, 0, result.EntitiesAdded)
	require.Equal(t, 1, e.CountEntities())

	got, err := e.FindEntityByName("alice")
	require.NoError(t, err)
	require.Equal(t, existing.ID, got.ID)
}

func TestExtractSkipsRelationWithUnresolvedEndpoint(t *testing.T) {
	x := &fakeExtractor{
		extraction: capability.Extraction{
			Entities: []capability.ExtractedEntity{{Name: "alice", EntityType: "person"}},
			Relations: []capability.ExtractedRelation{
				{SourceName: "alice", TargetName: "missing", RelationType: "knows"},
			},
		},
	}
	e := newTestEngineWithExtractor(x)

	result, err := e.Extract(context.Background(), ExtractInput{})
	require.NoError(t, err)
	require.Equal(t, 1, result.EntitiesAdded)
	require.Equal(t, 0, result.RelationshipsAdded)
	require.Equal(t, 1, result.Skipped)
}

func TestExtractCountsFailedConflictResolutionAsSkipped(t *testing.T) {
	x := &fakeExtractor{
		extraction: capability.Extraction{
			Facts: []capability.ExtractedFact{{Content: "bad fact"}},
		},
		verdict: capability.ConflictVerdict{Action: capability.ConflictUpdate, ExistingID: 999},
	}
	e := newTestEngineWithExtractor(x)

	result, err := e.Extract(context.Background(), ExtractInput{})
	require.NoError(t, err)
	require.Equal(t, 0, result.MemoriesUpdated)
	require.Equal(t, 1, result.Skipped)
}
