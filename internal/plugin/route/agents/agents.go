// Package agents mounts the fleet-membership surface (spec.md §6:
// POST /agents/register, GET /agents, POST /agents/:id/heartbeat).
package agents

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
)

// MountRoutes registers the agent endpoints under g.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/agents/register", registerAgent(eng))
	g.GET("/agents", listAgents(eng))
	g.POST("/agents/:id/heartbeat", heartbeat(eng))
}

type registerAgentRequest struct {
	AgentID      string   `json:"agentId" binding:"required"`
	Name         string   `json:"name"`
	AgentType    string   `json:"agentType"`
	Capabilities []string `json:"capabilities"`
	Metadata     string   `json:"metadata"`
}

func registerAgent(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerAgentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		agent, err := eng.RegisterAgent(engine.RegisterAgentInput{
			AgentID:      req.AgentID,
			Name:         req.Name,
			AgentType:    req.AgentType,
			Capabilities: req.Capabilities,
			Metadata:     req.Metadata,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, agent)
	}
}

func listAgents(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agents": eng.ListAgents()})
	}
}

func heartbeat(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, err := eng.Heartbeat(c.Param("id"))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, agent)
	}
}
