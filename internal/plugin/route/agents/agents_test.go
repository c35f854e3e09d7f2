package agents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/store"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory)
	eng := engine.New(st, ids, embedindex.New(), bus.New(8))

	r := gin.New()
	g := r.Group("/api/v1")
	MountRoutes(g, eng)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndListAgents(t *testing.T) {
	r := newTestRouter()

	rec := doJSON(r, http.MethodPost, "/api/v1/agents/register", registerAgentRequest{AgentID: "agent-1", Name: "worker"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/v1/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Agents []model.Agent `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Agents, 1)
	require.Equal(t, "agent-1", body.Agents[0].AgentID)
}

func TestRegisterAgentRequiresAgentID(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/api/v1/agents/register", registerAgentRequest{Name: "worker"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeartbeatUpdatesLastSeen(t *testing.T) {
	r := newTestRouter()
	doJSON(r, http.MethodPost, "/api/v1/agents/register", registerAgentRequest{AgentID: "agent-1"})

	rec := doJSON(r, http.MethodPost, "/api/v1/agents/agent-1/heartbeat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHeartbeatUnknownAgentReturns404(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/api/v1/agents/ghost/heartbeat", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
