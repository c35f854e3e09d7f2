package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nodenestor/hiveminddb/internal/config"
)

func newTestRouter(resolver *Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(resolver))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agent": AgentID(c)})
	})
	return r
}

func TestMiddlewareRejectsMissingCredentials(t *testing.T) {
	resolver := NewResolver(&config.Config{APIKeys: map[string]string{"k1": "agent-1"}})
	r := newTestRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidAPIKey(t *testing.T) {
	resolver := NewResolver(&config.Config{APIKeys: map[string]string{"k1": "agent-1"}})
	r := newTestRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "k1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "agent-1")
}

func TestMiddlewareRejectsUnknownAPIKey(t *testing.T) {
	resolver := NewResolver(&config.Config{APIKeys: map[string]string{"k1": "agent-1"}})
	r := newTestRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "nope")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
