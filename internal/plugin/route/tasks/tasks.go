// Package tasks mounts the fleet work-coordination surface (spec.md §3:
// Task lifecycle Pending -> Claimed -> InProgress -> Completed|Failed).
package tasks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
	"github.com/nodenestor/hiveminddb/internal/security"
)

// MountRoutes registers the task endpoints under g.
func MountRoutes(g *gin.RouterGroup, eng *engine.Engine) {
	g.POST("/tasks", createTask(eng))
	g.GET("/tasks", listTasks(eng))
	g.GET("/tasks/:id", getTask(eng))
	g.POST("/tasks/:id/claim", claimTask(eng))
	g.POST("/tasks/:id/start", startTask(eng))
	g.POST("/tasks/:id/complete", completeTask(eng))
	g.POST("/tasks/:id/fail", failTask(eng))
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func createTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := eng.CreateTask(c.Request.Context(), engine.CreateTaskInput{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func listTasks(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tasks": eng.ListTasks()})
	}
}

func getTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := eng.GetTask(id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func claimTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := eng.ClaimTask(c.Request.Context(), id, security.AgentID(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func startTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := eng.StartTask(c.Request.Context(), id, security.AgentID(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

type completeTaskRequest struct {
	Result string `json:"result"`
}

func completeTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req completeTaskRequest
		_ = c.ShouldBindJSON(&req)
		task, err := eng.CompleteTask(c.Request.Context(), id, security.AgentID(c), req.Result)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

type failTaskRequest struct {
	Reason string `json:"reason"`
}

func failTask(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req failTaskRequest
		_ = c.ShouldBindJSON(&req)
		task, err := eng.FailTask(c.Request.Context(), id, security.AgentID(c), req.Reason)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func parseID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
