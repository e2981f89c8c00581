package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ppiankov/sitrep/internal/model"
)

const sameIncidentPrompt = `You are judging whether a NEW emergency report describes the SAME incident as an EXISTING incident summary.

Existing incident summary:
"""
%s
"""

New report summary:
"""
%s
"""

Output a single number in [0, 1]:
- 1.0 = almost certainly the same incident (same place, same type, same time window).
- 0.7-0.9 = likely same (e.g. same building/area, same incident type).
- 0.4-0.6 = unclear (could be same or different).
- 0.1-0.3 = likely different (different location, type, or context).
- 0.0 = clearly different incident.

Respond with ONLY the number, no other text.`

var numberRe = regexp.MustCompile(`0?\.\d+|\d+\.?\d*`)

// SameIncident scores how likely a report describes the same incident as an
// existing summary. Neutral 0.5 on blank input or any failure.
func (c *Client) SameIncident(ctx context.Context, incidentSummary, reportSummary string) float64 {
	if incidentSummary == "" || reportSummary == "" {
		return 0.5
	}
	prompt := fmt.Sprintf(sameIncidentPrompt,
		truncate(incidentSummary, 2000), truncate(reportSummary, 2000))
	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		c.log.WithError(err).Warn("same-incident score failed")
		return 0.5
	}
	m := numberRe.FindString(raw)
	if m == "" {
		return 0.5
	}
	score, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0.5
	}
	return model.Clamp01(score)
}
