package tasks

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
	"github.com/nodenestor/hiveminddb/internal/security"
	"github.com/nodenestor/hiveminddb/internal/store"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	st := store.New()
	ids := idalloc.New(idalloc.KindTask)
	eng := engine.New(st, ids, embedindex.New(), bus.New(8))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(security.ContextKeyAgentID, "agent-1") })
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

func TestCreateTaskRequiresTitle(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/api/v1/tasks", createTaskRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskLifecycleThroughHTTP(t *testing.T) {
	r := newTestRouter()

	rec := doJSON(r, http.MethodPost, "/api/v1/tasks", createTaskRequest{Title: "index backlog"})
	require.Equal(t, http.StatusOK, rec.Code)
	var task model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.Equal(t, model.TaskPending, task.State)

	rec = doJSON(r, http.MethodPost, "/api/v1/tasks/1/claim", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/v1/tasks/1/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/v1/tasks/1/complete", completeTaskRequest{Result: "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.Equal(t, model.TaskCompleted, task.State)
}

func TestClaimTaskTwiceConflicts(t *testing.T) {
	r := newTestRouter()
	doJSON(r, http.MethodPost, "/api/v1/tasks", createTaskRequest{Title: "index backlog"})
	doJSON(r, http.MethodPost, "/api/v1/tasks/1/claim", nil)

	rec := doJSON(r, http.MethodPost, "/api/v1/tasks/1/claim", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownTaskReturns404(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodGet, "/api/v1/tasks/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
