package fuse

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sitrep/internal/model"
)

// RepeatBoost is the minimum support when the report text clearly repeats a
// value already in belief state. A floor, never lowering a higher score.
const RepeatBoost = 0.85

var separatorRe = regexp.MustCompile(`[\s_]+`)

// ClaimID derives the identity key a claim is matched under:
// claim_type + "::" + normalized value.
func ClaimID(claimType model.ClaimType, value string) string {
	return string(claimType) + "::" + model.NormalizeValue(value)
}

// ResolveSupport looks up the support score for a claim identity. A miss on
// the primary key is retried with separators normalized to underscores (the
// judge may return keys with spaces) before falling back to DefaultSupport.
func ResolveSupport(scores map[string]float64, claimType model.ClaimType, value string) float64 {
	if len(scores) == 0 {
		return DefaultSupport
	}
	cid := ClaimID(claimType, value)
	if s, ok := scores[cid]; ok {
		return s
	}
	if s, ok := scores[separatorRe.ReplaceAllString(cid, "_")]; ok {
		return s
	}
	return DefaultSupport
}

// BoostRepeatedMentions raises support for values the report text explicitly
// repeats (whole-word, case-insensitive). Without it repeated confirmations
// score as merely "positive" and confidence plateaus around 0.66 instead of
// climbing. Returns a corrected copy; the input map is not modified.
func BoostRepeatedMentions(text string, state *model.Incident, claims []model.Claim, scores map[string]float64) map[string]float64 {
	textLower := strings.ToLower(text)
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = v
	}

	floor := func(cid string) {
		cur, ok := out[cid]
		if !ok {
			cur = DefaultSupport
		}
		if cur < RepeatBoost {
			cur = RepeatBoost
		}
		out[cid] = cur
	}

	for _, c := range claims {
		if c.Value != "" && wordInText(textLower, c.Value) {
			floor(ClaimID(c.Type, c.Value))
		}
	}
	if state == nil {
		return out
	}
	for _, loc := range state.Locations {
		if loc.Value != "" && wordInText(textLower, loc.Value) {
			floor(ClaimID(model.ClaimLocation, loc.Value))
		}
	}
	if state.IncidentType != nil && state.IncidentType.Value != "" && wordInText(textLower, state.IncidentType.Value) {
		floor(ClaimID(model.ClaimIncidentType, state.IncidentType.Value))
	}
	if state.PeopleEstimate != nil && state.PeopleEstimate.Value != "" {
		v := state.PeopleEstimate.Value
		if wordInText(textLower, v) || peopleValueInText(textLower, v) {
			floor(ClaimID(model.ClaimPeopleCount, v))
		}
	}
	for _, h := range state.Hazards {
		if h.Value != "" && wordInText(textLower, h.Value) {
			floor(ClaimID(model.ClaimHazard, h.Value))
		}
	}
	return out
}

// wordInText reports whether value occurs in text as a whole word
func wordInText(textLower, value string) bool {
	v := model.NormalizeValue(value)
	if v == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(v) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(textLower)
}

// numberWords maps numeric people-count values to their spoken equivalents
var numberWords = map[string]string{
	"1":   "one",
	"2":   "two",
	"3":   "three",
	"4":   "four",
	"5":   "five",
	"2-3": "two three",
	"3-4": "three four",
}

// peopleValueInText matches people-count values against spoken number words
// ("two" for "2", "two three" for "2-3").
func peopleValueInText(textLower, value string) bool {
	v := model.NormalizeValue(value)
	if strings.Contains(textLower, v) {
		return true
	}
	for num, words := range numberWords {
		if strings.Contains(v, num) && strings.Contains(textLower, words) {
			return true
		}
	}
	return false
}
