package cluster

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/sitrep/internal/model"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	vec     []float32
	calls   int
	byInput map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls += 1
	if f.byInput != nil {
		if v, ok := f.byInput[text]; ok {
			return v
		}
	}
	return f.vec
}

type fakeMatcher struct {
	score float64
}

func (f *fakeMatcher) SameIncident(ctx context.Context, a, b string) float64 {
	return f.score
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func namedCandidate(id, incidentType, lastUpdated string) Candidate {
	in := model.NewIncident(id)
	it := model.NewConfidenceValue(incidentType, 0.8)
	in.IncidentType = &it
	return Candidate{ID: id, Incident: in, LastUpdated: lastUpdated}
}

func TestAssign_EmptyCandidates(t *testing.T) {
	a := NewAssigner(nil, nil, nil, 2, testLogger())
	id, score := a.Assign(context.Background(), Report{Summary: "incident_type: fire"}, nil, model.ClusterConfig{})
	assert.Equal(t, "", id)
	assert.Equal(t, 0.0, score)
}

func TestAssign_ExactThresholdMerges(t *testing.T) {
	// No embedder or matcher: both signals neutral at 0.5. With time and geo
	// at 1.0 the default weights give exactly 0.65, the default threshold.
	a := NewAssigner(nil, nil, nil, 2, testLogger())

	cand := namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z")
	cand.Incident.SetDeviceLocation(55.7558, 37.6173, 0.9, "2025-03-01T12:00:00Z")

	report := Report{
		Summary: "incident_type: fire",
		Time:    "2025-03-01T12:30:00Z",
		Lat:     ptr(55.7558),
		Lng:     ptr(37.6173),
	}
	id, score := a.Assign(context.Background(), report, []Candidate{cand}, model.ClusterConfig{})
	assert.Equal(t, "incident-001", id)
	assert.InDelta(t, 0.65, score, 1e-9)
}

func TestAssign_BelowThresholdStartsNew(t *testing.T) {
	a := NewAssigner(nil, nil, nil, 2, testLogger())

	// Old and far away: time 0.1, geo neutral
	cand := namedCandidate("incident-001", "fire", "2025-01-01T12:00:00Z")
	report := Report{Summary: "incident_type: flood", Time: "2025-03-01T12:00:00Z"}

	id, score := a.Assign(context.Background(), report, []Candidate{cand}, model.ClusterConfig{})
	assert.Equal(t, "", id)
	assert.Less(t, score, model.DefaultThreshold)
}

func TestAssign_HighThresholdRejectsEverything(t *testing.T) {
	a := NewAssigner(nil, nil, nil, 2, testLogger())
	cand := namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z")
	report := Report{Summary: "incident_type: fire", Time: "2025-03-01T12:00:00Z"}

	id, _ := a.Assign(context.Background(), report, []Candidate{cand}, model.ClusterConfig{Threshold: 0.99})
	assert.Equal(t, "", id)
}

func TestAssign_FirstSeenWinsTies(t *testing.T) {
	a := NewAssigner(nil, nil, nil, 4, testLogger())
	candidates := []Candidate{
		namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z"),
		namedCandidate("incident-002", "fire", "2025-03-01T12:00:00Z"),
	}
	report := Report{Summary: "incident_type: fire", Time: "2025-03-01T12:10:00Z"}

	cfg := model.ClusterConfig{Threshold: 0.5}
	for i := 0; i < 10; i++ {
		id, _ := a.Assign(context.Background(), report, candidates, cfg)
		require.Equal(t, "incident-001", id)
	}
}

func TestAssign_SkipsCandidatesWithoutSummary(t *testing.T) {
	a := NewAssigner(nil, nil, nil, 2, testLogger())
	empty := Candidate{ID: "incident-001", Incident: model.NewIncident("incident-001"), LastUpdated: "2025-03-01T12:00:00Z"}
	report := Report{Summary: "incident_type: fire", Time: "2025-03-01T12:00:00Z"}

	id, score := a.Assign(context.Background(), report, []Candidate{empty}, model.ClusterConfig{Threshold: 0.1})
	assert.Equal(t, "", id)
	assert.Equal(t, 0.0, score)
}

func TestAssign_MinEmbeddingGate(t *testing.T) {
	emb := &fakeEmbedder{byInput: map[string][]float32{}, vec: []float32{0, 1}}
	report := Report{Summary: "incident_type: flood", Time: "2025-03-01T12:00:00Z"}
	emb.byInput[report.Summary] = []float32{1, 0} // orthogonal to every candidate

	a := NewAssigner(emb, &fakeMatcher{score: 1.0}, nil, 2, testLogger())
	cand := namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z")

	// Combined 0.35*0 + 0.35*1 + 0.15*1 + 0.15*0.5 = 0.575 clears a permissive
	// threshold, so only the embedding floor can reject the merge.
	minEmb := 0.5
	cfg := model.ClusterConfig{Threshold: 0.5, MinEmbedding: &minEmb}
	id, score := a.Assign(context.Background(), report, []Candidate{cand}, cfg)
	assert.Equal(t, "", id)
	assert.Greater(t, score, 0.0)
}

func TestAssign_MinLLMGate(t *testing.T) {
	a := NewAssigner(nil, &fakeMatcher{score: 0.3}, nil, 2, testLogger())
	cand := namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z")
	cand.Incident.SetDeviceLocation(55.7558, 37.6173, 0.9, "2025-03-01T12:00:00Z")
	report := Report{
		Summary: "incident_type: fire",
		Time:    "2025-03-01T12:00:00Z",
		Lat:     ptr(55.7558),
		Lng:     ptr(37.6173),
	}

	minLLM := 0.4
	cfg := model.ClusterConfig{Threshold: 0.5, MinLLM: &minLLM}
	id, _ := a.Assign(context.Background(), report, []Candidate{cand}, cfg)
	assert.Equal(t, "", id)
}

func TestAssign_CachesCandidateEmbeddings(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	a := NewAssigner(emb, nil, nil, 2, testLogger())
	cand := namedCandidate("incident-001", "fire", "2025-03-01T12:00:00Z")
	report := Report{Summary: "incident_type: fire", Time: "2025-03-01T12:00:00Z"}

	cfg := model.ClusterConfig{Threshold: 0.5}
	a.Assign(context.Background(), report, []Candidate{cand}, cfg)
	first := emb.calls // report + candidate
	a.Assign(context.Background(), report, []Candidate{cand}, cfg)

	assert.Equal(t, first+1, emb.calls, "second assign should re-embed only the report")

	a.Cache().Invalidate("incident-001")
	a.Assign(context.Background(), report, []Candidate{cand}, cfg)
	assert.Equal(t, first+3, emb.calls, "invalidation should force candidate re-embedding")
}

func TestCombinedScore_WeightedAndRounded(t *testing.T) {
	got := CombinedScore(0.9, 0.8, 0.6, 0.3, model.DefaultWeights)
	// 0.35*0.9 + 0.35*0.8 + 0.15*0.6 + 0.15*0.3 = 0.73
	assert.InDelta(t, 0.73, got, 1e-9)
	assert.Equal(t, model.Round(got, 4), got)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}))
	// Opposite vectors clamp to zero instead of going negative
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
}
