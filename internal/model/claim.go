package model

// ClaimType categorizes the nature of a claim
type ClaimType string

const (
	ClaimLocation     ClaimType = "location"      // A place mentioned by the caller (floor, room, street)
	ClaimIncidentType ClaimType = "incident_type" // The incident category (fire, medical, flood, ...)
	ClaimPeopleCount  ClaimType = "people_count"  // Number or range of people involved
	ClaimHazard       ClaimType = "hazard"        // Situational danger (trapped, injured, explosion)
)

// Claim represents a single typed, timestamped observation extracted from
// report text. Immutable once produced by an extractor.
type Claim struct {
	Type       ClaimType      `json:"claim_type"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`            // Extractor's own certainty, recorded on the timeline
	Timestamp  string         `json:"timestamp"`             // ISO-8601
	SourceText string         `json:"source_text"`           // Raw text the claim came from
	CallerID   string         `json:"caller_id,omitempty"`   // Groups chunks from the same caller session
	CallerInfo map[string]any `json:"caller_info,omitempty"` // Optional session metadata
	Lat        *float64       `json:"lat,omitempty"`         // Location claims only
	Lng        *float64       `json:"lng,omitempty"`
}
