// Package search mounts the ranked retrieval endpoint (spec.md §6:
// POST /search), delegating to the fused keyword/vector search engine.
package search

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/plugin/route/httperr"
	"github.com/nodenestor/hiveminddb/internal/search"
)

// MountRoutes registers POST /search under g.
func MountRoutes(g *gin.RouterGroup, eng *search.Engine) {
	g.POST("/search", runSearch(eng))
}

type searchRequest struct {
	Query              string   `json:"query" binding:"required"`
	AgentID            *string  `json:"agentId"`
	UserID             *string  `json:"userId"`
	Tags               []string `json:"tags"`
	Limit              int      `json:"limit"`
	IncludeInvalidated bool     `json:"includeInvalidated"`
}

type searchResult struct {
	Memory interface{} `json:"memory"`
	Score  float64     `json:"score"`
}

func runSearch(eng *search.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		results, err := eng.Search(c.Request.Context(), search.Request{
			Query:              req.Query,
			AgentID:            req.AgentID,
			UserID:             req.UserID,
			Tags:               req.Tags,
			Limit:              req.Limit,
			IncludeInvalidated: req.IncludeInvalidated,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		out := make([]searchResult, len(results))
		for i, r := range results {
			out[i] = searchResult{Memory: r.Memory, Score: r.Score}
		}
		c.JSON(http.StatusOK, gin.H{"results": out})
	}
}
