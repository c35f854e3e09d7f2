package engine

import (
	"context"
	"strings"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// AddEntityInput is the caller-supplied content of a new graph entity.
type AddEntityInput struct {
	Name        string
	EntityType  string
	Description *string
	AgentID     *string
	Metadata    string
}

// AddEntity creates a new entity and publishes an entity_added event.
func (e *Engine) AddEntity(ctx context.Context, in AddEntityInput) (model.Entity, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Entity{}, apperr.Validation("name", "must not be empty")
	}
	now := e.clock()
	ent := model.Entity{
		ID:          e.ids.Next(idalloc.KindEntity),
		Name:        in.Name,
		EntityType:  in.EntityType,
		Description: in.Description,
		AgentID:     in.AgentID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    in.Metadata,
	}
	e.store.Entities.Insert(ent.ID, ent)
	e.publish(ctx, capability.EventEntityAdded, "", ent)
	return ent.Clone(), nil
}

// GetEntity returns the entity with the given id.
func (e *Engine) GetEntity(id uint64) (model.Entity, error) {
	ent, ok := e.store.Entities.Get(id)
	if !ok {
		return model.Entity{}, apperr.NotFound("entity", id)
	}
	return ent.Clone(), nil
}

// FindEntityByName returns the first entity (by insertion order) whose
// Name matches exactly.
func (e *Engine) FindEntityByName(name string) (model.Entity, error) {
	ent, ok := e.store.FindEntityByName(name)
	if !ok {
		return model.Entity{}, apperr.NotFound("entity", name)
	}
	return ent.Clone(), nil
}

// AddRelationshipInput is the caller-supplied content of a new edge.
type AddRelationshipInput struct {
	SourceEntityID uint64
	TargetEntityID uint64
	RelationType   string
	Description    *string
	Weight         float64
	CreatedBy      string
	Metadata       string
}

// AddRelationship creates a directed edge between two existing entities.
// Both endpoints must already exist, or a GraphEndpoint error is returned
// (spec.md §4.5).
func (e *Engine) AddRelationship(ctx context.Context, in AddRelationshipInput) (model.Relationship, error) {
	if _, ok := e.store.Entities.Get(in.SourceEntityID); !ok {
		return model.Relationship{}, apperr.GraphEndpoint("source entity does not exist")
	}
	if _, ok := e.store.Entities.Get(in.TargetEntityID); !ok {
		return model.Relationship{}, apperr.GraphEndpoint("target entity does not exist")
	}
	if strings.TrimSpace(in.RelationType) == "" {
		return model.Relationship{}, apperr.Validation("relationType", "must not be empty")
	}

	now := e.clock()
	r := model.Relationship{
		ID:             e.ids.Next(idalloc.KindRelationship),
		SourceEntityID: in.SourceEntityID,
		TargetEntityID: in.TargetEntityID,
		RelationType:   in.RelationType,
		Description:    in.Description,
		Weight:         in.Weight,
		ValidFrom:      now,
		CreatedBy:      in.CreatedBy,
		Metadata:       in.Metadata,
	}
	e.store.Relationships.Insert(r.ID, r)
	e.publish(ctx, capability.EventRelationshipAdded, "", r)
	return r.Clone(), nil
}

// NeighborPair pairs an outgoing relationship with the entity it points to.
type NeighborPair struct {
	Relationship model.Relationship
	Other        model.Entity
}

// Neighbors returns every outgoing relationship from entityID, paired with
// the entity it targets, in relationship-id (insertion) order.
func (e *Engine) Neighbors(entityID uint64) ([]NeighborPair, error) {
	if _, ok := e.store.Entities.Get(entityID); !ok {
		return nil, apperr.NotFound("entity", entityID)
	}
	rels := e.store.NeighborsOf(entityID)
	out := make([]NeighborPair, 0, len(rels))
	for _, r := range rels {
		other, ok := e.store.Entities.Get(r.TargetEntityID)
		if !ok {
			continue // endpoint was never supposed to vanish; skip defensively
		}
		out = append(out, NeighborPair{Relationship: r.Clone(), Other: other.Clone()})
	}
	return out, nil
}

// TraversalNode is one entity visited during a Traverse call, along with
// the outgoing edges that were followed from it.
type TraversalNode struct {
	Entity   model.Entity
	Depth    int
	Outgoing []model.Relationship
}

// Traverse performs a breadth-first walk of the graph starting at
// startID, following outgoing edges only, up to maxDepth hops (clamped to
// the Engine's configured ceiling, default DefaultMaxTraversalDepth).
// Each entity is visited at most once, at the depth it was first reached
// (spec.md §4.5).
func (e *Engine) Traverse(startID uint64, maxDepth int) ([]TraversalNode, error) {
	if _, ok := e.store.Entities.Get(startID); !ok {
		return nil, apperr.NotFound("entity", startID)
	}
	if maxDepth < 0 || maxDepth > e.maxTraversalDepth {
		maxDepth = e.maxTraversalDepth
	}

	visited := map[uint64]bool{startID: true}
	queue := []uint64{startID}
	depths := map[uint64]int{startID: 0}
	var out []TraversalNode

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		depth := depths[id]

		ent, ok := e.store.Entities.Get(id)
		if !ok {
			continue
		}
		rels := e.store.NeighborsOf(id)

		if depth >= maxDepth {
			out = append(out, TraversalNode{Entity: ent.Clone(), Depth: depth})
			continue
		}
		out = append(out, TraversalNode{Entity: ent.Clone(), Depth: depth, Outgoing: rels})
		for _, r := range rels {
			if visited[r.TargetEntityID] {
				continue
			}
			visited[r.TargetEntityID] = true
			depths[r.TargetEntityID] = depth + 1
			queue = append(queue, r.TargetEntityID)
		}
	}
	return out, nil
}
