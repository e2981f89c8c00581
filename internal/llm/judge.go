package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/sitrep/internal/fuse"
	"github.com/ppiankov/sitrep/internal/model"
)

// The judge never asserts facts. It only scores how much the new chunk
// supports or contradicts existing or candidate claims; the resulting map
// feeds the Bayesian update as likelihoods.
const judgePrompt = `You are a judge for an emergency-call incident summary. You do NOT assert facts. You only score how much the NEW transcript chunk supports or contradicts existing or candidate claims.

Current incident state (each value has a confidence 0-1):
%s

New transcript chunk:
"""
%s
"""

Extracted candidate claims from this chunk (for reference): %s

Task: For each claim below that is RELEVANT to the new chunk, output a support score in [0, 1]:
- 1.0 = chunk strongly supports this claim (explicit, clear mention).
- 0.85-0.95 = chunk REPEATS or CONFIRMS an existing claim (e.g. says "fire" again when state has incident_type fire) - use HIGH support so confidence increases.
- 0.7-0.85 = chunk supports (mentioned or implied).
- 0.4-0.6 = chunk is neutral or ambiguous.
- 0.1-0.3 = chunk weakly supports or contradicts.
- 0.0 = chunk contradicts or clearly does not support.

IMPORTANT: If the chunk explicitly mentions the same thing as an existing claim (e.g. "fire" when state has incident_type fire), output 0.9 or higher. Do not output 0.5 for repeated confirmation.

Output a JSON object with keys matching the claim identifiers. Each value is a number in [0, 1].
Include every claim that the chunk is relevant to (including existing state claims that the chunk confirms or repeats).

Format (example):
{ "location::third floor": 0.85, "incident_type::fire": 0.9, "hazard::smoke": 0.8 }

Use the exact claim identifiers listed below. Respond with ONLY the JSON object, no other text.
Claim identifiers to consider (output support only for those the chunk is relevant to):
%s`

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```\\s*$")
	keySepRe     = regexp.MustCompile(`[\s_]+`)
)

// SupportScores asks the judge for a support score per claim identity, given
// the incident state before this chunk. On any failure it returns
// DefaultScores for the extracted claims.
func (c *Client) SupportScores(ctx context.Context, stateBefore *model.Incident, chunk string, claims []model.Claim) map[string]float64 {
	if strings.TrimSpace(chunk) == "" {
		return map[string]float64{}
	}

	claimIDs := collectClaimIDs(stateBefore, claims)
	if len(claimIDs) == 0 {
		return map[string]float64{}
	}

	quoted := make([]string, len(claimIDs))
	for i, id := range claimIDs {
		quoted[i] = `"` + id + `"`
	}
	prompt := fmt.Sprintf(judgePrompt,
		stateSummary(stateBefore),
		truncate(strings.TrimSpace(chunk), 2000),
		truncate(claimsSummary(claims), 500),
		strings.Join(quoted, ", "))

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		c.log.WithError(err).Warn("judge failed")
		return DefaultScores(claims)
	}
	scores, err := parseSupportScores(raw)
	if err != nil {
		c.log.WithError(err).Warn("judge returned unparseable response")
		return DefaultScores(claims)
	}
	c.log.WithField("count", len(scores)).Info("judge returned support scores")
	return scores
}

// DefaultScores is the fallback when the judge is unavailable: every
// extracted claim gets neutral-positive support.
func DefaultScores(claims []model.Claim) map[string]float64 {
	out := make(map[string]float64, len(claims))
	for _, cl := range claims {
		if cl.Type == "" || cl.Value == "" {
			continue
		}
		out[fuse.ClaimID(cl.Type, cl.Value)] = fuse.DefaultSupport
	}
	return out
}

// parseSupportScores parses the judge's JSON object defensively: fences
// stripped, non-numeric values skipped, keys normalized so "incident
// type::fire" matches the engine's "incident_type::fire".
func parseSupportScores(raw string) (map[string]float64, error) {
	raw = fenceOpenRe.ReplaceAllString(strings.TrimSpace(raw), "")
	raw = fenceCloseRe.ReplaceAllString(raw, "")
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode judge response: %w", err)
	}
	out := make(map[string]float64, len(data))
	for k, v := range data {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		key := keySepRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(k)), "_")
		out[key] = model.Clamp01(f)
	}
	return out, nil
}

// collectClaimIDs gathers identifiers from current state plus the extracted
// claims, so the judge can score both existing and new claims.
func collectClaimIDs(state *model.Incident, claims []model.Claim) []string {
	set := make(map[string]struct{})
	if state != nil {
		for _, loc := range state.Locations {
			if loc.Value != "" {
				set[fuse.ClaimID(model.ClaimLocation, loc.Value)] = struct{}{}
			}
		}
		if state.IncidentType != nil && state.IncidentType.Value != "" {
			set[fuse.ClaimID(model.ClaimIncidentType, state.IncidentType.Value)] = struct{}{}
		}
		if state.PeopleEstimate != nil && state.PeopleEstimate.Value != "" {
			set[fuse.ClaimID(model.ClaimPeopleCount, state.PeopleEstimate.Value)] = struct{}{}
		}
		for _, h := range state.Hazards {
			if h.Value != "" {
				set[fuse.ClaimID(model.ClaimHazard, h.Value)] = struct{}{}
			}
		}
	}
	for _, cl := range claims {
		if cl.Type != "" && cl.Value != "" {
			set[fuse.ClaimID(cl.Type, cl.Value)] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stateSummary renders current state with confidences, one line per value
func stateSummary(state *model.Incident) string {
	if state == nil {
		return "(none)"
	}
	var parts []string
	appendValue := func(label, value string, confidence float64) {
		parts = append(parts, fmt.Sprintf("%s: %s (%.2f)", label, value, confidence))
	}
	if dl := state.DeviceLocation; dl != nil {
		appendValue("device_location", dl.Value, dl.Confidence)
	}
	for _, loc := range state.Locations {
		appendValue("location", loc.Value, loc.Confidence)
	}
	if state.IncidentType != nil {
		appendValue("incident_type", state.IncidentType.Value, state.IncidentType.Confidence)
	}
	if state.PeopleEstimate != nil {
		appendValue("people_estimate", state.PeopleEstimate.Value, state.PeopleEstimate.Confidence)
	}
	for _, h := range state.Hazards {
		appendValue("hazard", h.Value, h.Confidence)
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, "\n")
}

func claimsSummary(claims []model.Claim) string {
	parts := make([]string, 0, len(claims))
	for _, cl := range claims {
		parts = append(parts, string(cl.Type)+"="+cl.Value)
	}
	return strings.Join(parts, ", ")
}
