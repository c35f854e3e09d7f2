// Package extract mounts the conversation-ingestion endpoint (spec.md §6:
// POST /extract), delegating fact/entity/relationship extraction and
// conflict resolution to the Engine's configured Extractor.
package extract

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
)

// MountRoutes registers POST /extract under g.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/extract", runExtract(eng))
}

type messageDTO struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type extractRequest struct {
	Messages []messageDTO `json:"messages" binding:"required,min=1"`
	AgentID  *string      `json:"agentId"`
	UserID   *string      `json:"userId"`
}

func runExtract(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req extractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		messages := make([]capability.Message, len(req.Messages))
		for i, m := range req.Messages {
			messages[i] = capability.Message{Role: m.Role, Content: m.Content}
		}
		result, err := eng.Extract(c.Request.Context(), engine.ExtractInput{
			Messages: messages,
			AgentID:  req.AgentID,
			UserID:   req.UserID,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"memoriesAdded":      result.MemoriesAdded,
			"memoriesUpdated":    result.MemoriesUpdated,
			"entitiesAdded":      result.EntitiesAdded,
			"relationshipsAdded": result.RelationshipsAdded,
			"skipped":            result.Skipped,
		})
	}
}
