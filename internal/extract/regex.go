package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/model"
)

var locationRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(the\s+)?(first|second|third|fourth|fifth|1st|2nd|3rd|4th|5th|ground)\s+floor\b`),
	regexp.MustCompile(`(?i)\b(basement|roof|attic)\b`),
	regexp.MustCompile(`(?i)\b(room|apartment|flat|unit)\s+(\d+[a-z]?|\w+)\b`),
	regexp.MustCompile(`(?i)\b(building|block)\s+([a-z]|\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+\s+)?([a-z]+)\s+(street|st|avenue|ave|road|rd|drive|dr|way|place|pl)\b`),
	regexp.MustCompile(`(?i)\b(house|building|warehouse|office)\b`),
}

type typedPhrase struct {
	re    *regexp.Regexp
	value string
}

var incidentTypePhrases = []typedPhrase{
	{regexp.MustCompile(`(?i)\b(gas\s+leak|gas\s+leaking)\b`), "gas leak"},
	{regexp.MustCompile(`(?i)\bheart\s+attack|cardiac|chest\s+pain\b`), "medical"},
	{regexp.MustCompile(`(?i)\bstroke\b`), "medical"},
	{regexp.MustCompile(`(?i)\boverdose|od\b`), "overdose"},
	{regexp.MustCompile(`(?i)\bsuicide|self\s*[- ]?harm\b`), "suicide"},
	{regexp.MustCompile(`(?i)\bbreak[- ]?in|burglary|breaking\s+in\b`), "break-in"},
	{regexp.MustCompile(`(?i)\bgun\s*shot|gunshot|shooting|shot\s+at|someone\s+shot\b`), "assault"},
	{regexp.MustCompile(`(?i)\bassault|attack(ed)?|stabbed|shot\b`), "assault"},
	{regexp.MustCompile(`(?i)\bmissing\s+person|someone\s+missing\b`), "missing"},
	{regexp.MustCompile(`(?i)\b(car\s+)?(accident|crash|collision)\b`), "accident"},
	{regexp.MustCompile(`(?i)\b(collapse|collapsed)\b`), "collapse"},
	{regexp.MustCompile(`(?i)\bflood(ing)?\b`), "flood"},
	{regexp.MustCompile(`(?i)\bfire\b`), "fire"},
	{regexp.MustCompile(`(?i)\bmedical|ambulance|heart|breathing|unconscious|seizure\b`), "medical"},
}

// peopleRangePhrases: an empty value means "use the captured digits"
var peopleRangePhrases = []typedPhrase{
	{regexp.MustCompile(`(?i)\b(two|three|2|3)\s+(or|and)\s+(two|three|2|3)\s*(people|persons|adults|kids)?\b`), "2-3"},
	{regexp.MustCompile(`(?i)\b(two|2)\s*(or|to)\s*(three|3)\s*(people|persons)?\b`), "2-3"},
	{regexp.MustCompile(`(?i)\b(three|3)\s*(or|to)\s*(four|4)\s*(people|persons)?\b`), "3-4"},
	{regexp.MustCompile(`(?i)\b(one|1)\s*(or|and)\s*(two|2)\s*(people|persons)?\b`), "1-2"},
	{regexp.MustCompile(`(?i)\bseveral\s*(people|persons)?\b`), "3-6"},
	{regexp.MustCompile(`(?i)\b(a\s+)?few\s*(people|persons)?\b`), "2-4"},
	{regexp.MustCompile(`(?i)\bmany\s*(people|persons)?\b`), "5+"},
	{regexp.MustCompile(`(?i)\bmultiple\s*(people|persons)?\b`), "3+"},
	{regexp.MustCompile(`(?i)\b(one|1)\s+person\b`), "1"},
	{regexp.MustCompile(`(?i)\b(two|2)\s+people\b`), "2"},
	{regexp.MustCompile(`(?i)\b(three|3)\s+people\b`), "3"},
	{regexp.MustCompile(`(?i)\b(four|4)\s+people\b`), "4"},
	{regexp.MustCompile(`(?i)\b(five|5)\s+people\b`), "5"},
	{regexp.MustCompile(`(?i)\b(\d+)\s+people\b`), ""},
}

// Hazard keywords that are really incident types are emitted as
// incident_type, not hazard; only situational dangers stay hazards.
var hazardAsIncidentType = map[string]string{
	"fire": "fire", "smoke": "fire", "burning": "fire",
	"flood": "flood", "collapse": "collapse", "gas": "gas leak",
}

var hazardRegex = regexp.MustCompile(`(?i)\b(fire|smoke|burning|flood|collapse|gas|trapped|injured|unconscious|bleeding|explosion|chemical|electrical)\b`)

var hedgingRegex = regexp.MustCompile(`(?i)\b(i\s+think|maybe|perhaps|might\s+be|could\s+be|not\s+sure|unsure)\b`)

var streetConfRe = regexp.MustCompile(`\d+\s+(street|st|avenue|ave|road)`)
var roomConfRe = regexp.MustCompile(`(room|apartment|flat)\s+`)
var floorConfRe = regexp.MustCompile(`(first|second|third|fourth|ground)\s+floor`)

// RegexExtractor extracts claims with pattern rules only, no external
// services. It is the fallback when the LLM extractor is unavailable or
// returns nothing.
type RegexExtractor struct {
	log *logrus.Logger
}

// NewRegexExtractor creates a regex extractor
func NewRegexExtractor(log *logrus.Logger) *RegexExtractor {
	return &RegexExtractor{log: log}
}

func (e *RegexExtractor) Name() string { return "regex" }

// Extract extracts claims from a text chunk. state is ignored: the regex
// rules have no context.
func (e *RegexExtractor) Extract(_ context.Context, text string, _ *model.Incident) []model.Claim {
	source := strings.TrimSpace(text)
	if source == "" {
		e.log.Debug("regex extract skipped empty text")
		return nil
	}
	lower := strings.ToLower(source)
	now := nowISO()

	var claims []model.Claim
	claims = append(claims, extractLocations(lower, now, source)...)
	if c := extractIncidentType(lower, now, source); c != nil {
		claims = append(claims, *c)
	}
	if c := extractPeopleCount(lower, now, source); c != nil {
		claims = append(claims, *c)
	}
	claims = append(claims, extractHazards(lower, now, source)...)

	e.log.WithFields(logrus.Fields{
		"text_len": len(source),
		"claims":   len(claims),
	}).Info("regex extract done")
	return claims
}

// extractLocations collects every location phrase; an incident can span
// multiple parts (second floor and first floor).
func extractLocations(lower, now, source string) []model.Claim {
	var claims []model.Claim
	seen := make(map[string]struct{})
	for _, re := range locationRegexes {
		for _, span := range re.FindAllStringIndex(lower, -1) {
			value := strings.TrimSpace(source[span[0]:span[1]])
			if value == "" {
				continue
			}
			key := strings.ToLower(value)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			var conf float64
			switch {
			case streetConfRe.MatchString(key):
				conf = 0.85
			case roomConfRe.MatchString(key):
				conf = 0.8
			case floorConfRe.MatchString(key):
				conf = 0.78
			default:
				conf = 0.65
			}
			claims = append(claims, model.Claim{
				Type:       model.ClaimLocation,
				Value:      value,
				Confidence: hedgeConfidence(lower, conf),
				Timestamp:  now,
				SourceText: source,
			})
		}
	}
	return claims
}

func extractIncidentType(lower, now, source string) *model.Claim {
	for _, p := range incidentTypePhrases {
		if p.re.MatchString(lower) {
			conf := 0.82
			if strings.Contains(p.value, " ") {
				conf = 0.78
			}
			return &model.Claim{
				Type:       model.ClaimIncidentType,
				Value:      p.value,
				Confidence: hedgeConfidence(lower, conf),
				Timestamp:  now,
				SourceText: source,
			}
		}
	}
	return nil
}

func extractPeopleCount(lower, now, source string) *model.Claim {
	for _, p := range peopleRangePhrases {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		value := p.value
		if value == "" {
			value = m[1] // bare digit count
		}
		conf := 0.75
		if strings.ContainsAny(value, "-+") {
			conf = 0.7
		}
		return &model.Claim{
			Type:       model.ClaimPeopleCount,
			Value:      value,
			Confidence: hedgeConfidence(lower, conf),
			Timestamp:  now,
			SourceText: source,
		}
	}
	return nil
}

func extractHazards(lower, now, source string) []model.Claim {
	var claims []model.Claim
	for _, m := range hazardRegex.FindAllStringSubmatch(lower, -1) {
		value := strings.ToLower(m[1])
		conf := hedgeConfidence(lower, 0.72)
		if incType, ok := hazardAsIncidentType[value]; ok {
			claims = append(claims, model.Claim{
				Type:       model.ClaimIncidentType,
				Value:      incType,
				Confidence: conf,
				Timestamp:  now,
				SourceText: source,
			})
			continue
		}
		claims = append(claims, model.Claim{
			Type:       model.ClaimHazard,
			Value:      value,
			Confidence: conf,
			Timestamp:  now,
			SourceText: source,
		})
	}
	return claims
}

// hedgeConfidence discounts confidence when the speaker hedges
func hedgeConfidence(lower string, base float64) float64 {
	if hedgingRegex.MatchString(lower) {
		return model.Round(base*0.75, 2)
	}
	return base
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
