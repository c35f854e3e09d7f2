package engine

import (
	"context"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// ExtractInput is one batch of conversation turns to mine for memories,
// entities, and relationships.
type ExtractInput struct {
	Messages []capability.Message
	AgentID  *string
	UserID   *string
}

// ExtractResult tallies what Extract did, for the caller's response
// (spec.md §6: POST /extract).
type ExtractResult struct {
	MemoriesAdded        int
	MemoriesUpdated      int
	EntitiesAdded        int
	RelationshipsAdded   int
	Skipped              int
}

// similarMemoryLimit bounds how many existing memories are shown to the
// Extractor's conflict resolver per candidate fact.
const similarMemoryLimit = 5

// Extract runs the configured Extractor over in.Messages, resolves each
// candidate fact against similar existing memories, and materializes any
// proposed entities and relationships. Requires an Extractor to be
// configured (spec.md §7: unlike Embedder, extraction has no silent
// no-op degradation since it is the entire point of the call).
func (e *Engine) Extract(ctx context.Context, in ExtractInput) (ExtractResult, error) {
	if e.extractor == nil {
		return ExtractResult{}, apperr.Validation("extractor", "no extraction capability configured")
	}

	extraction, err := e.extractor.Extract(ctx, in.Messages, in.AgentID, in.UserID)
	if err != nil {
		return ExtractResult{}, apperr.Transport("extraction failed", err)
	}

	var result ExtractResult

	for _, fact := range extraction.Facts {
		similar := e.similarMemories(fact.Content, in.AgentID, in.UserID)
		verdict, err := e.extractor.ResolveConflict(ctx, fact, similar)
		if err != nil {
			result.Skipped++
			continue
		}
		before := verdict.Action
		if _, err := e.ApplyConflictResolution(ctx, fact, verdict, "extractor"); err != nil {
			result.Skipped++
			continue
		}
		switch before {
		case capability.ConflictAdd:
			result.MemoriesAdded++
		case capability.ConflictUpdate:
			result.MemoriesUpdated++
		}
	}

	entityIDs := make(map[string]uint64, len(extraction.Entities))
	for _, ent := range extraction.Entities {
		if existing, err := e.FindEntityByName(ent.Name); err == nil {
			entityIDs[ent.Name] = existing.ID
			continue
		}
		var desc *string
		if ent.Description != "" {
			desc = &ent.Description
		}
		created, err := e.AddEntity(ctx, AddEntityInput{
			Name:        ent.Name,
			EntityType:  ent.EntityType,
			Description: desc,
			AgentID:     in.AgentID,
		})
		if err != nil {
			result.Skipped++
			continue
		}
		entityIDs[ent.Name] = created.ID
		result.EntitiesAdded++
	}

	for _, rel := range extraction.Relations {
		srcID, srcOK := entityIDs[rel.SourceName]
		dstID, dstOK := entityIDs[rel.TargetName]
		if !srcOK || !dstOK {
			result.Skipped++
			continue
		}
		if _, err := e.AddRelationship(ctx, AddRelationshipInput{
			SourceEntityID: srcID,
			TargetEntityID: dstID,
			RelationType:   rel.RelationType,
			Weight:         rel.Weight,
			CreatedBy:      "extractor",
		}); err != nil {
			result.Skipped++
			continue
		}
		result.RelationshipsAdded++
	}

	return result, nil
}

// similarMemories returns up to similarMemoryLimit valid memories for the
// same agent/user, as candidate conflict targets for content. It does not
// itself rank by textual similarity to content: that judgment belongs to
// the Extractor's ResolveConflict.
func (e *Engine) similarMemories(content string, agentID, userID *string) []model.Memory {
	_ = content
	all := e.List(ListFilter{AgentID: agentID, UserID: userID})
	if len(all) > similarMemoryLimit {
		all = all[len(all)-similarMemoryLimit:]
	}
	return all
}
