package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/sitrep/internal/cluster"
	"github.com/ppiankov/sitrep/internal/model"
	"github.com/ppiankov/sitrep/internal/pipeline"
	"github.com/ppiankov/sitrep/internal/store"
)

type stubExtractor struct{}

func (stubExtractor) Name() string { return "stub" }

func (stubExtractor) Extract(ctx context.Context, text string, state *model.Incident) []model.Claim {
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	return []model.Claim{
		{Type: model.ClaimIncidentType, Value: "fire", Confidence: 0.82, Timestamp: now, SourceText: text},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := store.New()
	assigner := cluster.NewAssigner(nil, nil, nil, 1, log)
	p := pipeline.New(st, assigner, stubExtractor{}, nil, nil, model.ClusterConfig{}, log)
	return NewRouter(NewHandler(p, st, log)), st
}

func postChunk(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chunk", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProcessChunk_OK(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postChunk(t, r, ChunkRequest{Text: "there's a fire"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChunkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.DefaultIncidentID, resp.IncidentID)
	assert.Equal(t, 1, resp.ClaimsAdded)
	require.NotNil(t, resp.Summary.IncidentType)
	assert.Equal(t, "fire", resp.Summary.IncidentType.Value)
}

func TestProcessChunk_EmptyTextIs400(t *testing.T) {
	r, st := newTestRouter(t)

	w := postChunk(t, r, ChunkRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, st.Len(), "rejected chunk must not create incidents")
}

func TestProcessChunk_MalformedBodyIs400(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chunk", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents(t *testing.T) {
	r, _ := newTestRouter(t)
	postChunk(t, r, ChunkRequest{Text: "fire", IncidentID: "incident-aaa"})
	postChunk(t, r, ChunkRequest{Text: "fire", IncidentID: "incident-bbb"})

	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"incident-aaa", "incident-bbb"}, resp.IncidentIDs)
}

func TestListIncidents_Summaries(t *testing.T) {
	r, _ := newTestRouter(t)
	postChunk(t, r, ChunkRequest{Text: "fire"})

	req := httptest.NewRequest(http.MethodGet, "/incidents?summaries=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Incidents map[string]model.IncidentState `json:"incidents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Incidents, pipeline.DefaultIncidentID)
	assert.Equal(t, "fire", resp.Incidents[pipeline.DefaultIncidentID].IncidentType.Value)
}

func TestGetIncident(t *testing.T) {
	r, _ := newTestRouter(t)
	postChunk(t, r, ChunkRequest{Text: "fire"})

	req := httptest.NewRequest(http.MethodGet, "/incident/"+pipeline.DefaultIncidentID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var state model.IncidentState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, pipeline.DefaultIncidentID, state.IncidentID)
	assert.Equal(t, 1, state.TimelineCount)
}

func TestGetIncident_Unknown(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/incident/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTimeline(t *testing.T) {
	r, _ := newTestRouter(t)
	postChunk(t, r, ChunkRequest{Text: "fire"})

	req := httptest.NewRequest(http.MethodGet, "/incident/"+pipeline.DefaultIncidentID+"/timeline", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TimelineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.DefaultIncidentID, resp.IncidentID)
	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, model.ClaimIncidentType, resp.Timeline[0].ClaimType)
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Equal(t, "no-store, no-cache, must-revalidate", w.Header().Get("Cache-Control"))
}
