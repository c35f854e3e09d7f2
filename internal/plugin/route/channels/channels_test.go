package channels

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
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/store"
)

func newTestEngine() *engine.Engine {
	st := store.New()
	ids := idalloc.New(
		idalloc.KindMemory, idalloc.KindHistory,
		idalloc.KindChannel, idalloc.KindMembership,
	)
	return engine.New(st, ids, embedindex.New(), bus.New(8))
}

func newTestRouter(eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
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

func TestCreateAndListChannels(t *testing.T) {
	eng := newTestEngine()
	r := newTestRouter(eng)

	rec := doJSON(r, http.MethodPost, "/api/v1/channels", createChannelRequest{Name: "general"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/v1/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Channels []model.Channel `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Channels, 1)
	require.Equal(t, model.ChannelPublic, body.Channels[0].ChannelType)
}

func TestCreateChannelRequiresName(t *testing.T) {
	eng := newTestEngine()
	r := newTestRouter(eng)
	rec := doJSON(r, http.MethodPost, "/api/v1/channels", createChannelRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChannelRejectsDuplicateName(t *testing.T) {
	eng := newTestEngine()
	r := newTestRouter(eng)
	doJSON(r, http.MethodPost, "/api/v1/channels", createChannelRequest{Name: "general"})
	rec := doJSON(r, http.MethodPost, "/api/v1/channels", createChannelRequest{Name: "general"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareMemoryAddsMembership(t *testing.T) {
	eng := newTestEngine()
	r := newTestRouter(eng)

	mem, err := eng.Add(context.Background(), engine.AddMemoryInput{Content: "the sky is blue"})
	require.NoError(t, err)

	doJSON(r, http.MethodPost, "/api/v1/channels", createChannelRequest{Name: "general"})

	rec := doJSON(r, http.MethodPost, "/api/v1/channels/1/share", shareMemoryRequest{MemoryID: mem.ID})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestShareMemoryUnknownChannelReturns404(t *testing.T) {
	eng := newTestEngine()
	r := newTestRouter(eng)

	mem, err := eng.Add(context.Background(), engine.AddMemoryInput{Content: "the sky is blue"})
	require.NoError(t, err)

	rec := doJSON(r, http.MethodPost, "/api/v1/channels/999/share", shareMemoryRequest{MemoryID: mem.ID})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
