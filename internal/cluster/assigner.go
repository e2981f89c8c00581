// Package cluster decides whether a new report belongs to an already-known
// incident or starts a new one. Each candidate incident is scored along four
// signals (embedding similarity, an LLM same-incident judgment, time
// proximity, geo proximity) combined with configurable weights into one
// score, gated by a merge threshold.
package cluster

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/model"
	"github.com/ppiankov/sitrep/internal/worker"
)

// Embedder produces a semantic vector for text. A nil vector means the signal
// is unavailable and the caller must fall back to neutral.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Matcher scores how likely two summaries describe the same incident, in
// [0, 1], returning 0.5 when it cannot judge.
type Matcher interface {
	SameIncident(ctx context.Context, incidentSummary, reportSummary string) float64
}

// Candidate is one known incident offered for assignment. Incident is a
// snapshot copy; the assigner never touches live store state.
type Candidate struct {
	ID          string
	Incident    *model.Incident
	LastUpdated string
}

// Report is the incoming report being assigned
type Report struct {
	Summary string
	Time    string // ISO-8601
	Lat     *float64
	Lng     *float64
}

// Assigner scores reports against candidate incidents. Either signal source
// may be nil, which disables it (neutral 0.5 for every candidate).
type Assigner struct {
	embedder Embedder
	matcher  Matcher
	cache    *EmbeddingCache
	workers  int
	log      *logrus.Logger
}

// NewAssigner creates an assigner. workers bounds how many candidates are
// scored concurrently in one call.
func NewAssigner(embedder Embedder, matcher Matcher, cache *EmbeddingCache, workers int, log *logrus.Logger) *Assigner {
	if cache == nil {
		cache = NewEmbeddingCache()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Assigner{embedder: embedder, matcher: matcher, cache: cache, workers: workers, log: log}
}

// Cache exposes the embedding cache so callers can invalidate entries after
// incident mutations.
func (a *Assigner) Cache() *EmbeddingCache {
	return a.cache
}

// candidateScore carries one candidate's signals back from the pool
type candidateScore struct {
	index    int
	skip     bool
	embedSim float64
	llmScore float64
	combined float64
}

func (r *candidateScore) GetError() error { return nil }

type candidateJob struct {
	assigner  *Assigner
	report    Report
	reportEmb []float32
	candidate Candidate
	index     int
	weights   [4]float64
}

func (j *candidateJob) Execute(ctx context.Context) worker.Result {
	return j.assigner.scoreCandidate(ctx, j)
}

// Assign compares the report to every candidate and returns the best incident
// id with its combined score, or ("", score) when the report should start a
// new incident. Ties keep the first-seen candidate.
func (a *Assigner) Assign(ctx context.Context, report Report, candidates []Candidate, cfg model.ClusterConfig) (string, float64) {
	if len(candidates) == 0 {
		return "", 0.0
	}

	weights := cfg.ResolvedWeights()
	threshold := cfg.ResolvedThreshold()

	// One embedding for the report, shared across candidates. Unavailable
	// embedding degrades the semantic signal to neutral instead of failing
	// the whole assignment.
	var reportEmb []float32
	if a.embedder != nil {
		reportEmb = a.embedder.Embed(ctx, report.Summary)
		if reportEmb == nil {
			a.log.WithField("summary_len", len(report.Summary)).Warn("report embedding unavailable, semantic signal neutral")
		}
	}

	pool := worker.NewPool(a.workers)
	pool.Start()
	for i, cand := range candidates {
		pool.Submit(&candidateJob{
			assigner:  a,
			report:    report,
			reportEmb: reportEmb,
			candidate: cand,
			index:     i,
			weights:   weights,
		})
	}
	results := pool.Wait()

	scores := make([]*candidateScore, len(candidates))
	for _, r := range results {
		cs := r.(*candidateScore)
		scores[cs.index] = cs
	}

	// Pick the maximum scanning in input order, so ties keep the first-seen
	// candidate regardless of goroutine completion order.
	bestIdx := -1
	bestScore := 0.0
	for i, cs := range scores {
		if cs == nil || cs.skip {
			continue
		}
		if cs.combined > bestScore {
			bestScore = cs.combined
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < threshold {
		return "", bestScore
	}
	best := scores[bestIdx]
	if cfg.MinEmbedding != nil && best.embedSim < *cfg.MinEmbedding {
		a.log.WithFields(logrus.Fields{
			"embedding_sim": best.embedSim,
			"min_embedding": *cfg.MinEmbedding,
		}).Info("cluster skip: embedding similarity below floor")
		return "", bestScore
	}
	if cfg.MinLLM != nil && best.llmScore < *cfg.MinLLM {
		a.log.WithFields(logrus.Fields{
			"llm_score": best.llmScore,
			"min_llm":   *cfg.MinLLM,
		}).Info("cluster skip: llm score below floor")
		return "", bestScore
	}
	return candidates[bestIdx].ID, bestScore
}

func (a *Assigner) scoreCandidate(ctx context.Context, j *candidateJob) *candidateScore {
	cs := &candidateScore{index: j.index}

	summary := IncidentSummary(j.candidate.Incident)
	if summary == NoSummary {
		cs.skip = true
		return cs
	}

	embedSim := 0.5
	if j.reportEmb != nil {
		vec, ok := a.cache.Get(j.candidate.ID)
		if !ok {
			vec = a.embedder.Embed(ctx, summary)
			if vec != nil {
				a.cache.Set(j.candidate.ID, vec)
			}
		}
		if vec != nil {
			embedSim = CosineSimilarity(j.reportEmb, vec)
		}
	}

	llmScore := 0.5
	if a.matcher != nil {
		llmScore = a.matcher.SameIncident(ctx, summary, j.report.Summary)
	}

	timeScore := TimeProximityScore(j.report.Time, j.candidate.LastUpdated)
	geoScore := GeoProximityScore(j.report.Lat, j.report.Lng, j.candidate.Incident)

	cs.embedSim = embedSim
	cs.llmScore = llmScore
	cs.combined = CombinedScore(embedSim, llmScore, timeScore, geoScore, j.weights)
	return cs
}

// CombinedScore is the weighted sum of the four signals, rounded to 4
// decimal places. Weights order: embedding, llm, time, geo.
func CombinedScore(embedSim, llmScore, timeScore, geoScore float64, weights [4]float64) float64 {
	return model.Round(
		weights[0]*embedSim+weights[1]*llmScore+weights[2]*timeScore+weights[3]*geoScore, 4)
}

// CosineSimilarity computes cosine similarity clamped to [0, 1]; cosine can
// be negative, but a negative semantic contribution is never wanted here.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na <= 0 || nb <= 0 {
		return 0.0
	}
	return model.Clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
