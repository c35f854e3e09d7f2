// Package memories mounts the CRUD surface for memory records
// (spec.md §6: POST/GET /memories, GET/PUT/DELETE /memories/:id,
// GET /memories/:id/history).
package memories

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
	"github.com/nodenestor/hiveminddb/internal/security"
)

// MountRoutes registers the memory endpoints under g, an already-authed
// gin.RouterGroup rooted at /api/v1.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/memories", addMemory(eng))
	g.GET("/memories", listMemories(eng))
	g.GET("/memories/:id", getMemory(eng))
	g.PUT("/memories/:id", updateMemory(eng))
	g.DELETE("/memories/:id", invalidateMemory(eng))
	g.GET("/memories/:id/history", memoryHistory(eng))
}

type addMemoryRequest struct {
	Content    string            `json:"content" binding:"required"`
	Kind       model.MemoryKind  `json:"kind"`
	AgentID    *string           `json:"agentId"`
	UserID     *string           `json:"userId"`
	SessionID  *string           `json:"sessionId"`
	Confidence float64           `json:"confidence"`
	Source     string            `json:"source"`
	Tags       []string          `json:"tags"`
	Metadata   string            `json:"metadata"`
}

func addMemory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addMemoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Kind == "" {
			req.Kind = model.KindFact
		}
		m, err := eng.Add(c.Request.Context(), engine.AddMemoryInput{
			Content:    req.Content,
			Kind:       req.Kind,
			AgentID:    req.AgentID,
			UserID:     req.UserID,
			SessionID:  req.SessionID,
			Confidence: req.Confidence,
			Source:     req.Source,
			Tags:       req.Tags,
			Metadata:   req.Metadata,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func listMemories(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := engine.ListFilter{
			IncludeInvalidated: c.Query("include_invalidated") == "true",
		}
		if v := c.Query("agent_id"); v != "" {
			filter.AgentID = &v
		}
		if v := c.Query("user_id"); v != "" {
			filter.UserID = &v
		}
		if v := c.Query("tags"); v != "" {
			filter.Tags = strings.Split(v, ",")
		}
		c.JSON(http.StatusOK, gin.H{"memories": eng.List(filter)})
	}
}

func getMemory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		m, err := eng.Get(id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if err := eng.Authorize(c.Request.Context(), "read", m, security.AgentID(c), ""); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

type updateMemoryRequest struct {
	Content    *string  `json:"content"`
	Tags       []string `json:"tags"`
	Confidence *float64 `json:"confidence"`
	Metadata   *string  `json:"metadata"`
	Reason     string   `json:"reason"`
}

func updateMemory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req updateMemoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		m, err := eng.Update(c.Request.Context(), id, engine.UpdatePatch{
			Content:    req.Content,
			Tags:       req.Tags,
			Confidence: req.Confidence,
			Metadata:   req.Metadata,
		}, req.Reason, security.AgentID(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func invalidateMemory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reason := c.Query("reason")
		if err := eng.Invalidate(c.Request.Context(), id, reason, security.AgentID(c)); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
	}
}

func memoryHistory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hist, err := eng.History(id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": hist})
	}
}

func parseID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
