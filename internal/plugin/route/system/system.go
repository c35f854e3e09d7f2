// Package system mounts the unauthenticated liveness/readiness surface
// and the authenticated status endpoint (spec.md §6: `GET /status`,
// `GET /health`).
package system

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodenestor/hiveminddb/internal/engine"
	registryroute "github.com/nodenestor/hiveminddb/internal/registry/route"
)

var ready atomic.Bool

// MarkReady signals that the service has finished initializing (restore
// done, listeners bound) and is ready to serve traffic.
func MarkReady() {
	ready.Store(true)
}

func init() {
	registryroute.Register(registryroute.Plugin{
		Order: 0,
		Type:  registryroute.RouteTypeManagement,
		Loader: func(r *gin.Engine) error {
			r.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
			r.GET("/ready", func(c *gin.Context) {
				if ready.Load() {
					c.JSON(http.StatusOK, gin.H{"status": "ready"})
				} else {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
				}
			})
			r.GET("/metrics", gin.WrapH(promhttp.Handler()))
			return nil
		},
	})
}

// MountRoutes mounts the authenticated `/api/v1/status` route, reporting
// store counts and which optional capabilities are configured.
func MountRoutes(r *gin.Engine, eng *engine.Engine, auth gin.HandlerFunc) {
	g := r.Group("/api/v1", auth)
	g.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"memories":             eng.CountMemories(),
			"entities":             eng.CountEntities(),
			"relationships":        eng.CountRelationships(),
			"channels":             eng.CountChannels(),
			"agents":               eng.CountAgents(),
			"embedding_enabled":    eng.Embedder() != nil,
			"replication_enabled":  eng.ReplicationEnabled(),
		})
	})
}
