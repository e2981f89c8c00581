// Package fuse applies extracted claims to an incident's belief state.
// Confidence is updated via a Bayesian posterior using externally supplied
// support scores.
package fuse

import (
	"math"

	"github.com/ppiankov/sitrep/internal/model"
)

const (
	// MaxConfidence caps any posterior: no belief is ever certain
	MaxConfidence = 0.95

	// DefaultPrior is the prior for a claim slot with no existing state
	DefaultPrior = 0.40

	// DefaultSupport is the neutral support when the judge offers no score:
	// a claim is assumed slightly more often true than false.
	DefaultSupport = 0.55
)

// BayesianPosterior computes P(H|E) from prior P(H) and likelihood P(E|H),
// assuming P(E|¬H) = 1 - P(E|H):
//
//	posterior = prior*L / (prior*L + (1-prior)*(1-L))
//
// Extreme likelihoods bypass the formula to avoid its singularities: support
// <= 0 is a weak decrease, support >= 1 a bounded increase. A single
// contradiction should not erase a well-supported belief.
func BayesianPosterior(prior, likelihood float64) float64 {
	if likelihood <= 0 {
		return math.Max(0.0, prior-0.1)
	}
	if likelihood >= 1 {
		return math.Min(1.0, prior+0.2)
	}
	denom := prior*likelihood + (1.0-prior)*(1.0-likelihood)
	if denom <= 0 {
		return prior
	}
	return math.Min(MaxConfidence, math.Max(0.05, prior*likelihood/denom))
}

// Engine merges claim batches into incident belief state
type Engine struct{}

// NewEngine creates a new merge engine
func NewEngine() *Engine {
	return &Engine{}
}

// Apply merges claims into the incident in list order. Every claim appends a
// timeline event and advances LastUpdated, whether or not it changes belief
// state. support maps claim identities to likelihoods; missing entries fall
// back to DefaultSupport. Stored confidences are rounded to 4 decimal places.
func (e *Engine) Apply(incident *model.Incident, claims []model.Claim, support map[string]float64) {
	for _, claim := range claims {
		e.applyClaim(incident, claim, support)
	}
}

func (e *Engine) applyClaim(incident *model.Incident, claim model.Claim, support map[string]float64) {
	incident.Timeline = append(incident.Timeline, model.TimelineEvent{
		Time:       claim.Timestamp,
		ClaimType:  claim.Type,
		Value:      claim.Value,
		Confidence: claim.Confidence,
		SourceText: claim.SourceText,
		CallerID:   claim.CallerID,
		CallerInfo: claim.CallerInfo,
	})
	incident.LastUpdated = claim.Timestamp

	s := ResolveSupport(support, claim.Type, claim.Value)

	switch claim.Type {
	case model.ClaimLocation:
		existing := incident.FindLocation(claim.Value)
		prior := DefaultPrior
		if existing != nil {
			prior = existing.Confidence
		}
		conf := model.Round(BayesianPosterior(prior, s), 4)
		if existing == nil {
			loc := model.NewLocationValue(claim.Value, conf, claim.Lat, claim.Lng)
			incident.Locations = append(incident.Locations, &loc)
			return
		}
		existing.Confidence = conf
		// Merge coordinates without clobbering known ones
		if claim.Lat != nil {
			existing.Lat = claim.Lat
		}
		if claim.Lng != nil {
			existing.Lng = claim.Lng
		}

	case model.ClaimIncidentType:
		// Last write wins on the value; confidence is Bayesian-merged against
		// the previous slot's confidence as prior.
		prior := DefaultPrior
		if incident.IncidentType != nil {
			prior = incident.IncidentType.Confidence
		}
		cv := model.NewConfidenceValue(claim.Value, model.Round(BayesianPosterior(prior, s), 4))
		incident.IncidentType = &cv

	case model.ClaimPeopleCount:
		prior := DefaultPrior
		if incident.PeopleEstimate != nil {
			prior = incident.PeopleEstimate.Confidence
		}
		cv := model.NewConfidenceValue(claim.Value, model.Round(BayesianPosterior(prior, s), 4))
		incident.PeopleEstimate = &cv

	case model.ClaimHazard:
		existing := incident.FindHazard(claim.Value)
		prior := DefaultPrior
		if existing != nil {
			prior = existing.Confidence
		}
		conf := model.Round(BayesianPosterior(prior, s), 4)
		if existing == nil {
			cv := model.NewConfidenceValue(claim.Value, conf)
			incident.Hazards = append(incident.Hazards, &cv)
			return
		}
		existing.Confidence = conf
	}
}
