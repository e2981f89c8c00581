package fuse

import (
	"testing"

	"github.com/ppiankov/sitrep/internal/model"
)

func TestClaimID_NormalizesValue(t *testing.T) {
	got := ClaimID(model.ClaimIncidentType, "  Fire ")
	if got != "incident_type::fire" {
		t.Errorf("Expected incident_type::fire, got %q", got)
	}
}

func TestResolveSupport(t *testing.T) {
	scores := map[string]float64{
		"incident_type::fire":   0.9,
		"location::123_main_st": 0.8,
	}

	tests := []struct {
		name      string
		claimType model.ClaimType
		value     string
		expected  float64
	}{
		{"direct hit", model.ClaimIncidentType, "fire", 0.9},
		{"case and whitespace insensitive", model.ClaimIncidentType, " FIRE ", 0.9},
		{"separator fallback hits underscore key", model.ClaimLocation, "123 Main St", 0.8},
		{"miss falls back to default", model.ClaimHazard, "smoke", DefaultSupport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSupport(scores, tt.claimType, tt.value)
			if got != tt.expected {
				t.Errorf("ResolveSupport(%s, %q) = %.2f, expected %.2f", tt.claimType, tt.value, got, tt.expected)
			}
		})
	}
}

func TestResolveSupport_EmptyMap(t *testing.T) {
	if got := ResolveSupport(nil, model.ClaimIncidentType, "fire"); got != DefaultSupport {
		t.Errorf("Expected default support %.2f, got %.2f", DefaultSupport, got)
	}
}

func TestBoostRepeatedMentions_FloorsStateValues(t *testing.T) {
	incident := model.NewIncident("incident-001")
	it := model.NewConfidenceValue("fire", 0.6)
	incident.IncidentType = &it

	// Judge was lukewarm, but the caller repeated the word
	scores := map[string]float64{"incident_type::fire": 0.5}
	out := BoostRepeatedMentions("yes it's definitely a fire", incident, nil, scores)

	if out["incident_type::fire"] < RepeatBoost {
		t.Errorf("Expected floor %.2f for repeated mention, got %.2f", RepeatBoost, out["incident_type::fire"])
	}
	// Input map untouched
	if scores["incident_type::fire"] != 0.5 {
		t.Errorf("Input map was modified: %.2f", scores["incident_type::fire"])
	}
}

func TestBoostRepeatedMentions_DoesNotLowerHigherScores(t *testing.T) {
	scores := map[string]float64{"incident_type::fire": 0.95}
	claims := []model.Claim{{Type: model.ClaimIncidentType, Value: "fire"}}
	out := BoostRepeatedMentions("the fire is spreading", nil, claims, scores)
	if out["incident_type::fire"] != 0.95 {
		t.Errorf("Expected 0.95 preserved, got %.2f", out["incident_type::fire"])
	}
}

func TestBoostRepeatedMentions_WholeWordOnly(t *testing.T) {
	claims := []model.Claim{{Type: model.ClaimIncidentType, Value: "fire"}}
	out := BoostRepeatedMentions("the firefighters arrived", nil, claims, map[string]float64{})
	if s, ok := out["incident_type::fire"]; ok && s >= RepeatBoost {
		t.Errorf("Substring match should not boost: got %.2f", s)
	}
}

func TestBoostRepeatedMentions_NumberWords(t *testing.T) {
	incident := model.NewIncident("incident-001")
	pe := model.NewConfidenceValue("2", 0.6)
	incident.PeopleEstimate = &pe

	out := BoostRepeatedMentions("there are two people trapped", incident, nil, map[string]float64{})
	if out["people_count::2"] < RepeatBoost {
		t.Errorf("Expected number-word match to floor support, got %.2f", out["people_count::2"])
	}
}

func TestBoostRepeatedMentions_RangeNumberWords(t *testing.T) {
	incident := model.NewIncident("incident-001")
	pe := model.NewConfidenceValue("2-3", 0.6)
	incident.PeopleEstimate = &pe

	out := BoostRepeatedMentions("maybe two three people inside", incident, nil, map[string]float64{})
	if out["people_count::2-3"] < RepeatBoost {
		t.Errorf("Expected range match to floor support, got %.2f", out["people_count::2-3"])
	}
}

func TestBoostRepeatedMentions_NoMentionNoChange(t *testing.T) {
	claims := []model.Claim{{Type: model.ClaimHazard, Value: "gas leak"}}
	out := BoostRepeatedMentions("people are shouting", nil, claims, map[string]float64{"hazard::gas leak": 0.4})
	if out["hazard::gas leak"] != 0.4 {
		t.Errorf("Expected untouched score 0.4, got %.2f", out["hazard::gas leak"])
	}
}
