package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/llm"
	"github.com/ppiankov/sitrep/internal/model"
)

// Incident-type probability is decided by the judge + Bayesian update in the
// pipeline; the LLM only provides the classification value.
const neutralIncidentTypeConfidence = 0.5

// Terms that describe the incident category map to incident_type, not hazard
var incidentTypeAliases = map[string]string{
	"fire": "fire", "smoke": "fire", "burning": "fire", "flame": "fire", "flames": "fire",
	"flood": "flood", "flooding": "flood",
	"collapse": "collapse", "collapsed": "collapse",
	"gas": "gas leak", "gas leak": "gas leak", "leak": "gas leak",
	"assault": "assault", "shooting": "assault", "gunshot": "assault", "shot": "assault",
	"medical": "medical", "accident": "accident", "break-in": "break-in", "missing": "missing",
	"overdose": "overdose", "suicide": "suicide",
}

const extractSchema = `
Return a JSON object with these optional keys. Only include keys where the NEW transcript chunk EXPLICITLY states something. Do not infer.

- locations: [ { "value": "<place/floor/room from transcript>", "confidence": 0.0-1.0 }, ... ]  (can be multiple, e.g. "second floor" and "first floor")
- incident_type: { "value": "fire|medical|accident|collapse|flood|gas leak|assault|break-in|missing|overdose|suicide" }  (probability is set by the system from context; you only choose the type)
- people_count: { "value": "<number or range e.g. 2-3 or 1>", "confidence": 0.0-1.0 }
- hazards: [ { "value": "<keyword>", "confidence": 0.0-1.0 }, ... ]

Rules: Use confidence for certainty. If the speaker hedges ("I think", "maybe"), use lower confidence. Omit keys not stated. For locations, include every distinct place mentioned. For incident_type: gun shot, shooting, shot, stabbed, attack, fire, smoke, flood, collapse, gas leak -> use incident_type with the canonical value (e.g. "fire", "assault"). Do NOT put incident types in hazards. Use hazards ONLY for situational dangers (e.g. trapped, injured, downed power line, chemical spill, explosion risk) - not for the main incident category.
`

const contextInstructions = `
You are updating an ongoing incident summary. You are given:
1) CURRENT INCIDENT STATE - what we already know (from previous chunks).
2) NEW TRANSCRIPT CHUNK - the latest speech to process.

Output only what this NEW chunk adds or updates. You can:
- Add NEW locations (e.g. "first floor" when we already have "second floor").
- Add or reinforce incident_type, people_count, hazards.
- Use incident_type for the main incident category (fire, smoke->fire, flood, collapse, gas leak, assault, medical, etc.). Use hazards ONLY for situational dangers (trapped, injured, downed power line, chemical) - never put incident categories in hazards.
- For incident_type you only choose the value (classification); the system sets the probability from context. For other fields use confidence as usual.
- Use confidence to reflect how well the new chunk supports or updates each claim (except incident_type).
Do not repeat the full state - only output claims that this chunk adds or that should update probabilities (e.g. same location mentioned again -> higher confidence).
`

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```\\s*$")
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
	wordRe       = regexp.MustCompile(`\w+`)
)

// LLMExtractor extracts claims with an LLM, context-aware and with
// anti-hallucination grounding: confidence is capped when the value is not
// clearly present in the transcript.
type LLMExtractor struct {
	client *llm.Client
	log    *logrus.Logger
}

// NewLLMExtractor creates an LLM extractor over a configured client
func NewLLMExtractor(client *llm.Client, log *logrus.Logger) *LLMExtractor {
	return &LLMExtractor{client: client, log: log}
}

func (e *LLMExtractor) Name() string { return "openai" }

// Extract extracts claims from a chunk, using current incident state as
// context when available. Any failure degrades to an empty list.
func (e *LLMExtractor) Extract(ctx context.Context, text string, state *model.Incident) []model.Claim {
	source := strings.TrimSpace(text)
	if source == "" {
		e.log.Debug("llm extract skipped empty text")
		return nil
	}
	now := nowISO()

	raw, err := e.client.Complete(ctx, buildExtractPrompt(source, state))
	if err != nil {
		e.log.WithError(err).Warn("llm extract failed")
		return nil
	}
	claims := parseExtractResponse(raw, source, now, e.log)
	e.log.WithField("claims", len(claims)).Info("llm extract done")
	return claims
}

func buildExtractPrompt(source string, state *model.Incident) string {
	if hasContext(state) {
		return contextInstructions +
			"\n\n--- CURRENT INCIDENT STATE ---\n" + contextSummary(state) +
			"\n\n--- NEW TRANSCRIPT CHUNK ---\n\"\"\"\n" + source + "\n\"\"\"\n\n" +
			"--- OUTPUT (JSON only) ---\n" +
			"Return a JSON object with optional keys: locations (array of { value, confidence }), incident_type, people_count, hazards (array). " +
			"Only include what this NEW chunk adds or updates. No markdown fences."
	}
	return "You are an evidence extractor for emergency call transcripts. " +
		"Extract ONLY what is explicitly stated. Do not infer.\n\n" +
		"Transcript chunk:\n\"\"\"\n" + source + "\n\"\"\"\n\n" +
		extractSchema +
		"\nRespond with only the JSON object. No markdown code fences."
}

func hasContext(state *model.Incident) bool {
	return state != nil && (len(state.Locations) > 0 || state.IncidentType != nil ||
		state.PeopleEstimate != nil || len(state.Hazards) > 0)
}

func contextSummary(state *model.Incident) string {
	var parts []string
	if len(state.Locations) > 0 {
		vals := make([]string, 0, len(state.Locations))
		for _, loc := range state.Locations {
			vals = append(vals, fmt.Sprintf("%s (%.2f)", loc.Value, loc.Confidence))
		}
		parts = append(parts, "locations: "+strings.Join(vals, ", "))
	}
	if state.IncidentType != nil {
		parts = append(parts, fmt.Sprintf("incident_type: %s (%.2f)", state.IncidentType.Value, state.IncidentType.Confidence))
	}
	if state.PeopleEstimate != nil {
		parts = append(parts, fmt.Sprintf("people_estimate: %s (%.2f)", state.PeopleEstimate.Value, state.PeopleEstimate.Confidence))
	}
	if len(state.Hazards) > 0 {
		vals := make([]string, 0, len(state.Hazards))
		for _, h := range state.Hazards {
			vals = append(vals, fmt.Sprintf("%s (%.2f)", h.Value, h.Confidence))
		}
		parts = append(parts, "hazards: "+strings.Join(vals, ", "))
	}
	if len(parts) == 0 {
		return "(No prior state.)"
	}
	return strings.Join(parts, "\n")
}

// llmValue is one extracted entry; Value tolerates numbers as well as strings
type llmValue struct {
	Value      any      `json:"value"`
	Confidence *float64 `json:"confidence"`
}

func (v llmValue) text() string {
	if v.Value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v.Value))
}

func (v llmValue) confidence(fallback float64) float64 {
	if v.Confidence == nil {
		return fallback
	}
	return *v.Confidence
}

type llmPayload struct {
	Locations    []llmValue      `json:"locations"`
	Location     *llmValue       `json:"location"`
	IncidentType json.RawMessage `json:"incident_type"`
	PeopleCount  *llmValue       `json:"people_count"`
	Hazards      []llmValue      `json:"hazards"`
}

// parseExtractResponse parses the LLM JSON defensively and applies the
// grounding cap to every claim.
func parseExtractResponse(raw, source, now string, log *logrus.Logger) []model.Claim {
	raw = fenceOpenRe.ReplaceAllString(strings.TrimSpace(raw), "")
	raw = fenceCloseRe.ReplaceAllString(raw, "")

	var payload llmPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.WithError(err).Warn("llm extract json decode failed")
		obj := jsonObjectRe.FindString(raw)
		if obj == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(obj), &payload); err != nil {
			return nil
		}
	}

	var claims []model.Claim
	locations := payload.Locations
	if len(locations) == 0 && payload.Location != nil {
		locations = []llmValue{*payload.Location}
	}
	for _, loc := range locations {
		v := loc.text()
		if v == "" {
			continue
		}
		conf := capByGrounding(loc.confidence(0.6), groundingScore(source, v, model.ClaimLocation))
		claims = append(claims, model.Claim{
			Type: model.ClaimLocation, Value: v, Confidence: conf,
			Timestamp: now, SourceText: source,
		})
	}

	if v := incidentTypeValue(payload.IncidentType); v != "" {
		claims = append(claims, model.Claim{
			Type: model.ClaimIncidentType, Value: v, Confidence: neutralIncidentTypeConfidence,
			Timestamp: now, SourceText: source,
		})
	}

	if payload.PeopleCount != nil {
		if v := payload.PeopleCount.text(); v != "" {
			conf := capByGrounding(payload.PeopleCount.confidence(0.5), groundingScore(source, v, model.ClaimPeopleCount))
			claims = append(claims, model.Claim{
				Type: model.ClaimPeopleCount, Value: v, Confidence: conf,
				Timestamp: now, SourceText: source,
			})
		}
	}

	for _, h := range payload.Hazards {
		v := strings.ToLower(h.text())
		if v == "" {
			continue
		}
		// Reclassify hazards that are really incident types
		canonical := incidentTypeAliases[v]
		if canonical == "" {
			if first := strings.Fields(v); len(first) > 0 {
				canonical = incidentTypeAliases[first[0]]
			}
		}
		if canonical != "" {
			claims = append(claims, model.Claim{
				Type: model.ClaimIncidentType, Value: canonical, Confidence: neutralIncidentTypeConfidence,
				Timestamp: now, SourceText: source,
			})
			continue
		}
		conf := capByGrounding(h.confidence(0.6), groundingScore(source, v, model.ClaimHazard))
		claims = append(claims, model.Claim{
			Type: model.ClaimHazard, Value: v, Confidence: conf,
			Timestamp: now, SourceText: source,
		})
	}
	return claims
}

func incidentTypeValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj llmValue
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.ToLower(obj.text())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return ""
}

// groundingScore scores how well a value is backed by the source text
// (anti-hallucination): 1.0 for an exact substring, decreasing with word
// overlap, with special handling for spoken number words.
func groundingScore(source, value string, claimType model.ClaimType) float64 {
	if value == "" || source == "" {
		return 0.0
	}
	sourceLower := strings.ToLower(strings.TrimSpace(source))
	valueLower := strings.ToLower(strings.TrimSpace(value))
	if strings.Contains(sourceLower, valueLower) {
		return 1.0
	}

	words := wordSet(valueLower)
	sourceWords := wordSet(sourceLower)
	overlapCount := 0
	for w := range words {
		if _, ok := sourceWords[w]; ok {
			overlapCount++
		}
	}
	denom := len(words)
	if denom == 0 {
		denom = 1
	}
	overlap := float64(overlapCount) / float64(denom)
	switch {
	case overlap >= 0.8:
		return 0.95
	case overlap >= 0.5:
		return 0.7
	case overlap >= 0.3:
		return 0.5
	}

	if claimType == model.ClaimPeopleCount {
		numMap := map[string]string{
			"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
			"2-3": "two three", "1-2": "one two",
		}
		for k, v := range numMap {
			if strings.Contains(valueLower, k) && strings.Contains(sourceLower, v) {
				return 0.85
			}
		}
		if strings.ContainsAny(value, "0123456789") && strings.ContainsAny(sourceLower, "0123456789") {
			return 0.6
		}
	}
	if claimType == model.ClaimHazard && len(words) <= 2 {
		if overlap > 0 {
			return 0.6
		}
		return 0.35
	}
	if overlap > 0.2 {
		return overlap
	}
	return 0.2
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(s, -1) {
		out[w] = struct{}{}
	}
	return out
}

// capByGrounding caps confidence so ungrounded claims cannot carry high
// probability.
func capByGrounding(confidence, grounding float64) float64 {
	const minCap = 0.25
	ceiling := grounding
	if ceiling < minCap {
		ceiling = minCap
	}
	if confidence > ceiling {
		confidence = ceiling
	}
	return model.Round(confidence, 4)
}
