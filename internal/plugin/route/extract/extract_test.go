package extract

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
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/store"
)

type fakeExtractor struct {
	extraction capability.Extraction
}

func (f *fakeExtractor) Extract(_ context.Context, _ []capability.Message, _, _ *string) (capability.Extraction, error) {
	return f.extraction, nil
}

func (f *fakeExtractor) ResolveConflict(_ context.Context, _ capability.ExtractedFact, _ []model.Memory) (capability.ConflictVerdict, error) {
	return capability.ConflictVerdict{Action: capability.ConflictAdd}, nil
}

func newTestRouter(x capability.Extractor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory, idalloc.KindEntity, idalloc.KindRelationship)
	var opts []engine.Option
	if x != nil {
		opts = append(opts, engine.WithExtractor(x))
	}
	eng := engine.New(st, ids, embedindex.New(), bus.New(8), opts...)

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

func TestExtractAddsFact(t *testing.T) {
	x := &fakeExtractor{
		extraction: capability.Extraction{
			Facts: []capability.ExtractedFact{{Content: "alice likes go", Kind: model.KindFact, Confidence: 0.9}},
		},
	}
	r := newTestRouter(x)

	rec := doJSON(r, http.MethodPost, "/api/v1/extract", extractRequest{
		Messages: []messageDTO{{Role: "user", Content: "alice likes go"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MemoriesAdded int `json:"memoriesAdded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.MemoriesAdded)
}

func TestExtractRequiresAtLeastOneMessage(t *testing.T) {
	r := newTestRouter(&fakeExtractor{})
	rec := doJSON(r, http.MethodPost, "/api/v1/extract", extractRequest{Messages: []messageDTO{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractWithoutConfiguredExtractorFails(t *testing.T) {
	r := newTestRouter(nil)
	rec := doJSON(r, http.MethodPost, "/api/v1/extract", extractRequest{
		Messages: []messageDTO{{Role: "user", Content: "hello"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
