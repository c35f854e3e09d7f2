package graph

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
	"github.com/nodenestor/hiveminddb/internal/store"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory, idalloc.KindEntity, idalloc.KindRelationship)
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

func TestAddAndGetEntity(t *testing.T) {
	r := newTestRouter()

	rec := doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "alice", EntityType: "person"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/v1/entities/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddEntityRequiresName(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEntityNotFoundReturns404(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(r, http.MethodGet, "/api/v1/entities/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindEntityByName(t *testing.T) {
	r := newTestRouter()
	doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "alice", EntityType: "person"})

	rec := doJSON(r, http.MethodPost, "/api/v1/entities/find", findEntityRequest{Name: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/v1/entities/find", findEntityRequest{Name: "bob"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddRelationshipAndListNeighbors(t *testing.T) {
	r := newTestRouter()
	doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "alice", EntityType: "person"})
	doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "go", EntityType: "language"})

	rec := doJSON(r, http.MethodPost, "/api/v1/relationships", addRelationshipRequest{
		SourceEntityID: 1,
		TargetEntityID: 2,
		RelationType:   "likes",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/v1/entities/1/relationships", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Relationships []map[string]interface{} `json:"relationships"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Relationships, 1)
}

func TestTraverseFromEntity(t *testing.T) {
	r := newTestRouter()
	doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "alice", EntityType: "person"})
	doJSON(r, http.MethodPost, "/api/v1/entities", addEntityRequest{Name: "go", EntityType: "language"})
	doJSON(r, http.MethodPost, "/api/v1/relationships", addRelationshipRequest{
		SourceEntityID: 1,
		TargetEntityID: 2,
		RelationType:   "likes",
	})

	rec := doJSON(r, http.MethodPost, "/api/v1/graph/traverse", traverseRequest{EntityID: 1, Depth: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Nodes []map[string]interface{} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Nodes)
}
