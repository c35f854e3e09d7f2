// Package graph mounts the entity/relationship knowledge-graph surface
// (spec.md §6: POST /entities, GET /entities/:id, POST /entities/find,
// GET /entities/:id/relationships, POST /relationships,
// POST /graph/traverse).
package graph

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
	"github.com/nodenestor/hiveminddb/internal/security"
)

// MountRoutes registers the graph endpoints under g.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/entities", addEntity(eng))
	g.GET("/entities/:id", getEntity(eng))
	g.POST("/entities/find", findEntity(eng))
	g.GET("/entities/:id/relationships", entityRelationships(eng))
	g.POST("/relationships", addRelationship(eng))
	g.POST("/graph/traverse", traverse(eng))
}

type addEntityRequest struct {
	Name        string  `json:"name" binding:"required"`
	EntityType  string  `json:"entityType"`
	Description *string `json:"description"`
	AgentID     *string `json:"agentId"`
	Metadata    string  `json:"metadata"`
}

func addEntity(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addEntityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ent, err := eng.AddEntity(c.Request.Context(), engine.AddEntityInput{
			Name:        req.Name,
			EntityType:  req.EntityType,
			Description: req.Description,
			AgentID:     req.AgentID,
			Metadata:    req.Metadata,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, ent)
	}
}

func getEntity(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ent, err := eng.GetEntity(id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, ent)
	}
}

type findEntityRequest struct {
	Name string `json:"name" binding:"required"`
}

func findEntity(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req findEntityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ent, err := eng.FindEntityByName(req.Name)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, ent)
	}
}

func entityRelationships(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		neighbors, err := eng.Neighbors(id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"relationships": neighbors})
	}
}

type addRelationshipRequest struct {
	SourceEntityID uint64  `json:"sourceEntityId" binding:"required"`
	TargetEntityID uint64  `json:"targetEntityId" binding:"required"`
	RelationType   string  `json:"relationType" binding:"required"`
	Description    *string `json:"description"`
	Weight         float64 `json:"weight"`
	Metadata       string  `json:"metadata"`
}

func addRelationship(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addRelationshipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rel, err := eng.AddRelationship(c.Request.Context(), engine.AddRelationshipInput{
			SourceEntityID: req.SourceEntityID,
			TargetEntityID: req.TargetEntityID,
			RelationType:   req.RelationType,
			Description:    req.Description,
			Weight:         req.Weight,
			CreatedBy:      security.AgentID(c),
			Metadata:       req.Metadata,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, rel)
	}
}

type traverseRequest struct {
	EntityID uint64 `json:"entityId" binding:"required"`
	Depth    int    `json:"depth"`
}

func traverse(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req traverseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		nodes, err := eng.Traverse(req.EntityID, req.Depth)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"nodes": nodes})
	}
}

func parseID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
