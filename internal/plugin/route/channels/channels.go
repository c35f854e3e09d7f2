// Package channels mounts the pub/sub channel surface (spec.md §6:
// POST/GET /channels, POST /channels/:id/share).
package channels

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
	"github.com/nodenestor/hiveminddb/internal/security"
)

// MountRoutes registers the channel endpoints under g.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/channels", createChannel(eng))
	g.GET("/channels", listChannels(eng))
	g.POST("/channels/:id/share", shareMemory(eng))
}

type createChannelRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description *string            `json:"description"`
	ChannelType model.ChannelType  `json:"channelType"`
}

func createChannel(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ChannelType == "" {
			req.ChannelType = model.ChannelPublic
		}
		ch, err := eng.CreateChannel(c.Request.Context(), engine.CreateChannelInput{
			Name:        req.Name,
			Description: req.Description,
			ChannelType: req.ChannelType,
			CreatedBy:   security.AgentID(c),
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, ch)
	}
}

func listChannels(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"channels": eng.ListChannels()})
	}
}

type shareMemoryRequest struct {
	MemoryID uint64 `json:"memoryId" binding:"required"`
	SharedBy string `json:"sharedBy"`
}

func shareMemory(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req shareMemoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sharedBy := req.SharedBy
		if sharedBy == "" {
			sharedBy = security.AgentID(c)
		}
		membership, err := eng.ShareMemory(c.Request.Context(), channelID, req.MemoryID, sharedBy)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, membership)
	}
}
