package search

import (
	"bytes"
	"context"
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
	"github.com/nodenestor/hiveminddb/internal/search"
	"github.com/nodenestor/hiveminddb/internal/store"
)

func newTestRouter() (*gin.Engine, *engine.Engine) {
	gin.SetMode(gin.TestMode)
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory)
	eng := engine.New(st, ids, embedindex.New(), bus.New(8))
	searchEng := search.New(eng, 0, 0, 10)

	r := gin.New()
	g := r.Group("/api/v1")
	MountRoutes(g, searchEng)
	return r, eng
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

func TestSearchReturnsMatchingMemory(t *testing.T) {
	r, eng := newTestRouter()
	_, err := eng.Add(context.Background(), engine.AddMemoryInput{Content: "the sky is blue today"})
	require.NoError(t, err)
	_, err = eng.Add(context.Background(), engine.AddMemoryInput{Content: "bananas are yellow"})
	require.NoError(t, err)

	rec := doJSON(r, http.MethodPost, "/api/v1/search", searchRequest{Query: "sky blue"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Results)
}

func TestSearchRequiresQuery(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/api/v1/search", searchRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
