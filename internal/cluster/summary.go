package cluster

import (
	"strings"

	"github.com/ppiankov/sitrep/internal/model"
)

// NoSummary is the placeholder for an incident with no renderable state.
// Candidates rendering to it are never compared.
const NoSummary = "(no summary)"

// maxPreview caps the transcript preview appended to report summaries
const maxPreview = 200

// IncidentSummary renders belief state into the compact pipe-joined string
// fed to the embedding and same-incident signals. Field order is fixed so the
// same state always renders identically.
func IncidentSummary(in *model.Incident) string {
	var parts []string
	if in.IncidentType != nil && in.IncidentType.Value != "" {
		parts = append(parts, "incident_type: "+in.IncidentType.Value)
	}
	for _, loc := range in.Locations {
		if loc.Value != "" {
			parts = append(parts, "location: "+loc.Value)
		}
	}
	if dl := in.DeviceLocation; dl != nil {
		parts = append(parts, "device: "+dl.Value)
		if geo := DeviceGeoSnippet(dl.Lat, dl.Lng); geo != "" {
			parts = append(parts, "device_geo: "+geo)
		}
	}
	if in.PeopleEstimate != nil && in.PeopleEstimate.Value != "" {
		parts = append(parts, "people: "+in.PeopleEstimate.Value)
	}
	for _, h := range in.Hazards {
		if h.Value != "" {
			parts = append(parts, "hazard: "+h.Value)
		}
	}
	if len(parts) == 0 {
		return NoSummary
	}
	return strings.Join(parts, " | ")
}

// ReportSummary renders a not-yet-committed claim batch the same way, plus an
// optional raw-text preview and device geo snippet, so a pending report can
// be compared against committed incidents.
func ReportSummary(claims []model.Claim, preview string, lat, lng *float64) string {
	var parts []string
	for _, c := range claims {
		if c.Type != "" && c.Value != "" {
			parts = append(parts, string(c.Type)+": "+c.Value)
		}
	}
	if geo := DeviceGeoSnippet(lat, lng); geo != "" {
		parts = append(parts, "device_geo: "+geo)
	}
	text := strings.Join(parts, " | ")
	if preview = strings.TrimSpace(truncate(preview, maxPreview)); preview != "" {
		if text != "" {
			text += " | transcript: " + preview
		} else {
			text = "transcript: " + preview
		}
	}
	if text == "" {
		return NoSummary
	}
	return text
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
