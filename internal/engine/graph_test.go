package engine

import (
	"context"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestAddRelationshipRequiresBothEndpoints(t *testing.T) {
	e := newTestEngine()
	a, _ := e.AddEntity(context.Background(), AddEntityInput{Name: "alice", EntityType: "person"})

	_, err := e.AddRelationship(context.Background(), AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: 999, RelationType: "knows"})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindGraphEndpoint, appErr.Kind)
}

func TestFindEntityByNameReturnsLowestIDOnDuplicate(t *testing.T) {
	e := newTestEngine()
	first, _ := e.AddEntity(context.Background(), AddEntityInput{Name: "bob", EntityType: "person"})
	_, _ = e.AddEntity(context.Background(), AddEntityInput{Name: "bob", EntityType: "person"})

	got, err := e.FindEntityByName("bob")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
}

func TestNeighborsReturnsOutgoingInOrder(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	a, _ := e.AddEntity(ctx, AddEntityInput{Name: "a", EntityType: "t"})
	b, _ := e.AddEntity(ctx, AddEntityInput{Name: "b", EntityType: "t"})
	c, _ := e.AddEntity(ctx, AddEntityInput{Name: "c", EntityType: "t"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: b.ID, RelationType: "knows"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: c.ID, RelationType: "knows"})

	neighbors, err := e.Neighbors(a.ID)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	require.Equal(t, b.ID, neighbors[0].Other.ID)
	require.Equal(t, c.ID, neighbors[1].Other.ID)
}

func TestTraverseVisitsEachEntityOnceAtShallowestDepth(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	a, _ := e.AddEntity(ctx, AddEntityInput{Name: "a", EntityType: "t"})
	b, _ := e.AddEntity(ctx, AddEntityInput{Name: "b", EntityType: "t"})
	c, _ := e.AddEntity(ctx, AddEntityInput{Name: "c", EntityType: "t"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: b.ID, RelationType: "r"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: b.ID, TargetEntityID: c.ID, RelationType: "r"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: c.ID, RelationType: "r"})

	nodes, err := e.Traverse(a.ID, 5)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	depthByID := map[uint64]int{}
	for _, n := range nodes {
		depthByID[n.Entity.ID] = n.Depth
	}
	require.Equal(t, 0, depthByID[a.ID])
	require.Equal(t, 1, depthByID[b.ID])
	require.Equal(t, 1, depthByID[c.ID]) // reached directly from a, not via b
}

func TestTraverseClampsToConfiguredCeiling(t *testing.T) {
	e := newTestEngine(WithMaxTraversalDepth(1))
	ctx := context.Background()
	a, _ := e.AddEntity(ctx, AddEntityInput{Name: "a", EntityType: "t"})
	b, _ := e.AddEntity(ctx, AddEntityInput{Name: "b", EntityType: "t"})
	c, _ := e.AddEntity(ctx, AddEntityInput{Name: "c", EntityType: "t"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: b.ID, RelationType: "r"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: b.ID, TargetEntityID: c.ID, RelationType: "r"})

	nodes, err := e.Traverse(a.ID, 100)
	require.NoError(t, err)
	require.Len(t, nodes, 2) // a and b only; c is 2 hops away, beyond the ceiling of 1
}

func TestTraverseZeroDepthReturnsOnlyStart(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	a, _ := e.AddEntity(ctx, AddEntityInput{Name: "a", EntityType: "t"})
	b, _ := e.AddEntity(ctx, AddEntityInput{Name: "b", EntityType: "t"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: b.ID, RelationType: "knows"})

	nodes, err := e.Traverse(a.ID, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, a.ID, nodes[0].Entity.ID)
	require.Empty(t, nodes[0].Outgoing)
}

func TestTraverseLeafAtMaxDepthReportsNoOutgoing(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	a, _ := e.AddEntity(ctx, AddEntityInput{Name: "a", EntityType: "t"})
	b, _ := e.AddEntity(ctx, AddEntityInput{Name: "b", EntityType: "t"})
	c, _ := e.AddEntity(ctx, AddEntityInput{Name: "c", EntityType: "t"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: a.ID, TargetEntityID: b.ID, RelationType: "knows"})
	_, _ = e.AddRelationship(ctx, AddRelationshipInput{SourceEntityID: b.ID, TargetEntityID: c.ID, RelationType: "knows"})

	nodes, err := e.Traverse(a.ID, 1)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	byID := map[uint64]TraversalNode{}
	for _, n := range nodes {
		byID[n.Entity.ID] = n
	}
	require.Len(t, byID[a.ID].Outgoing, 1) // followed: a-knows-b
	require.Empty(t, byID[b.ID].Outgoing)  // b is at the max depth; its edge to c was not followed
}
