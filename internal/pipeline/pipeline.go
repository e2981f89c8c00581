// Package pipeline orchestrates the processing of one transcript chunk:
// extraction, support judging, cluster assignment, and the confidence merge.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/cluster"
	"github.com/ppiankov/sitrep/internal/extract"
	"github.com/ppiankov/sitrep/internal/fuse"
	"github.com/ppiankov/sitrep/internal/model"
	"github.com/ppiankov/sitrep/internal/store"
)

// DefaultIncidentID is the target when the caller pins no incident and
// clustering is off.
const DefaultIncidentID = "incident-001"

// ErrEmptyText rejects a blank chunk before any state is touched
var ErrEmptyText = errors.New("text is required and cannot be empty")

// Judge provides support scores for the Bayesian update. Nil disables it;
// claims then carry the default neutral support.
type Judge interface {
	SupportScores(ctx context.Context, stateBefore *model.Incident, chunk string, claims []model.Claim) map[string]float64
}

// ChunkRequest is one inbound transcript chunk
type ChunkRequest struct {
	Text        string
	IncidentID  string
	DeviceLat   *float64
	DeviceLng   *float64
	AutoCluster bool // Assign to the best-matching incident or create a new one
	CallerID    string
	CallerInfo  map[string]any
}

// ChunkResult reports where the chunk landed and the resulting state
type ChunkResult struct {
	IncidentID   string
	State        model.IncidentState
	ClaimsAdded  int
	ClusterScore *float64 // Set when AutoCluster was requested
	ClusterNew   *bool    // True if the chunk created a new incident
}

// Pipeline wires the engines together for one-chunk processing
type Pipeline struct {
	store     *store.Store
	engine    *fuse.Engine
	assigner  *cluster.Assigner
	extractor extract.Extractor
	fallback  extract.Extractor // Used when the primary yields nothing
	judge     Judge
	cfg       model.ClusterConfig
	log       *logrus.Logger
}

// New creates a pipeline. fallback and judge may be nil.
func New(st *store.Store, assigner *cluster.Assigner, extractor, fallback extract.Extractor, judge Judge, cfg model.ClusterConfig, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		store:     st,
		engine:    fuse.NewEngine(),
		assigner:  assigner,
		extractor: extractor,
		fallback:  fallback,
		judge:     judge,
		cfg:       cfg,
		log:       log,
	}
}

// ProcessChunk runs the full control flow for one chunk. The incident store
// is always left in a valid state; external-signal failures degrade to
// neutral values inside the engines.
func (p *Pipeline) ProcessChunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		p.log.Warn("chunk rejected: empty text")
		return nil, ErrEmptyText
	}

	log := p.log.WithFields(logrus.Fields{
		"incident_id":  req.IncidentID,
		"auto_cluster": req.AutoCluster,
		"text_len":     len(text),
	})
	log.Info("chunk received")

	result := &ChunkResult{}
	incidentID := req.IncidentID
	if incidentID == "" {
		incidentID = DefaultIncidentID
	}

	if req.AutoCluster {
		incidentID = p.assign(ctx, text, req, result)
	}

	if p.store.CreateIfAbsent(incidentID) {
		log.WithField("incident_id", incidentID).Info("incident created")
	}

	if req.DeviceLat != nil && req.DeviceLng != nil {
		err := p.store.Apply(incidentID, func(in *model.Incident) {
			in.SetDeviceLocation(*req.DeviceLat, *req.DeviceLng, 0.9, nowISO())
		})
		if err != nil {
			return nil, err
		}
	}

	stateBefore, err := p.store.Get(incidentID)
	if err != nil {
		return nil, err
	}

	claims := p.extractClaims(ctx, text, stateBefore)
	for i := range claims {
		if req.CallerID != "" {
			claims[i].CallerID = req.CallerID
		}
		if req.CallerInfo != nil {
			claims[i].CallerInfo = req.CallerInfo
		}
	}

	scores := map[string]float64{}
	if len(claims) > 0 && p.judge != nil {
		scores = p.judge.SupportScores(ctx, stateBefore, text, claims)
	}
	scores = fuse.BoostRepeatedMentions(text, stateBefore, claims, scores)

	err = p.store.Apply(incidentID, func(in *model.Incident) {
		p.engine.Apply(in, claims, scores)
	})
	if err != nil {
		return nil, err
	}

	// Next assignment must compare against the updated summary
	p.assigner.Cache().Invalidate(incidentID)

	state, err := p.store.State(incidentID)
	if err != nil {
		return nil, err
	}
	result.IncidentID = incidentID
	result.State = state
	result.ClaimsAdded = len(claims)
	log.WithFields(logrus.Fields{
		"incident_id":  incidentID,
		"claims_added": len(claims),
		"timeline_len": state.TimelineCount,
	}).Info("chunk applied")
	return result, nil
}

// assign scores the chunk against every known incident and picks a target,
// allocating a fresh incident when nothing clears the threshold.
func (p *Pipeline) assign(ctx context.Context, text string, req ChunkRequest, result *ChunkResult) string {
	quickClaims := p.extractClaims(ctx, text, nil)
	summary := cluster.ReportSummary(quickClaims, text, req.DeviceLat, req.DeviceLng)

	entries := p.store.Snapshot()
	candidates := make([]cluster.Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, cluster.Candidate{
			ID:          e.ID,
			Incident:    e.Incident,
			LastUpdated: e.LastUpdated,
		})
	}

	report := cluster.Report{Summary: summary, Time: nowISO(), Lat: req.DeviceLat, Lng: req.DeviceLng}
	bestID, score := p.assigner.Assign(ctx, report, candidates, p.cfg)

	rounded := model.Round(score, 4)
	result.ClusterScore = &rounded
	if bestID != "" {
		isNew := false
		result.ClusterNew = &isNew
		p.log.WithFields(logrus.Fields{"incident_id": bestID, "score": rounded}).Info("cluster assigned")
		return bestID
	}
	newID := store.NewIncidentID()
	p.store.CreateIfAbsent(newID)
	isNew := true
	result.ClusterNew = &isNew
	p.log.WithFields(logrus.Fields{"incident_id": newID, "score": rounded}).Info("cluster created new incident")
	return newID
}

// extractClaims runs the primary extractor, falling back when it yields
// nothing (the fallback needs no external services).
func (p *Pipeline) extractClaims(ctx context.Context, text string, state *model.Incident) []model.Claim {
	claims := p.extractor.Extract(ctx, text, state)
	if len(claims) == 0 && p.fallback != nil && p.fallback.Name() != p.extractor.Name() {
		p.log.WithField("extractor", p.extractor.Name()).Warn("extractor returned no claims, falling back")
		claims = p.fallback.Extract(ctx, text, state)
	}
	return claims
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
