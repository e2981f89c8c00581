package model

import (
	"math"
	"strings"
)

// ConfidenceValue is an uncertain string value with a confidence in [0, 1]
type ConfidenceValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// NewConfidenceValue builds a ConfidenceValue, clamping confidence to [0, 1]
func NewConfidenceValue(value string, confidence float64) ConfidenceValue {
	return ConfidenceValue{Value: value, Confidence: Clamp01(confidence)}
}

// LocationValue is a ConfidenceValue plus optional geo coordinates for map
// display. Lat/Lng are updatable independently of confidence.
type LocationValue struct {
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// NewLocationValue builds a LocationValue, clamping confidence to [0, 1]
func NewLocationValue(value string, confidence float64, lat, lng *float64) LocationValue {
	return LocationValue{Value: value, Confidence: Clamp01(confidence), Lat: lat, Lng: lng}
}

// TimelineEvent is an append-only log record of one applied claim. Never
// edited or removed once appended.
type TimelineEvent struct {
	Time       string         `json:"time"`
	ClaimType  ClaimType      `json:"claim_type"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	SourceText string         `json:"source_text"`
	CallerID   string         `json:"caller_id,omitempty"`
	CallerInfo map[string]any `json:"caller_info,omitempty"`
}

// Incident is the accumulated, confidence-scored belief state about one
// distinct real-world situation. The identity is immutable; all other fields
// are mutated only by the fuse engine. Locations and hazards are deduplicated
// by normalized value, in discovery order.
type Incident struct {
	ID             string
	DeviceLocation *LocationValue // Caller's device (lat/lng), the primary location
	Locations      []*LocationValue
	IncidentType   *ConfidenceValue
	PeopleEstimate *ConfidenceValue
	Hazards        []*ConfidenceValue
	Timeline       []TimelineEvent
	LastUpdated    string // Timestamp of the most recently applied claim
}

// NewIncident creates an empty incident with the given id
func NewIncident(id string) *Incident {
	return &Incident{ID: id}
}

// NormalizeValue is the canonical form used for value dedup and claim
// identity: trimmed and lowercased.
func NormalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// FindLocation returns the location entry matching value (normalized), or nil
func (in *Incident) FindLocation(value string) *LocationValue {
	key := NormalizeValue(value)
	for _, loc := range in.Locations {
		if NormalizeValue(loc.Value) == key {
			return loc
		}
	}
	return nil
}

// FindHazard returns the hazard entry matching value (normalized), or nil
func (in *Incident) FindHazard(value string) *ConfidenceValue {
	key := NormalizeValue(value)
	for _, h := range in.Hazards {
		if NormalizeValue(h.Value) == key {
			return h
		}
	}
	return nil
}

// SetDeviceLocation records the caller's device position as the primary
// location for the incident.
func (in *Incident) SetDeviceLocation(lat, lng, confidence float64, now string) {
	in.DeviceLocation = &LocationValue{
		Value:      "Device",
		Confidence: Clamp01(confidence),
		Lat:        &lat,
		Lng:        &lng,
	}
	in.LastUpdated = now
}

// Clone returns a deep copy, safe to read while the original keeps mutating
func (in *Incident) Clone() *Incident {
	out := &Incident{
		ID:             in.ID,
		IncidentType:   copyConfidence(in.IncidentType),
		PeopleEstimate: copyConfidence(in.PeopleEstimate),
		LastUpdated:    in.LastUpdated,
	}
	if in.DeviceLocation != nil {
		out.DeviceLocation = copyLocation(in.DeviceLocation)
	}
	for _, loc := range in.Locations {
		out.Locations = append(out.Locations, copyLocation(loc))
	}
	for _, h := range in.Hazards {
		out.Hazards = append(out.Hazards, copyConfidence(h))
	}
	out.Timeline = append([]TimelineEvent(nil), in.Timeline...)
	return out
}

func copyConfidence(cv *ConfidenceValue) *ConfidenceValue {
	if cv == nil {
		return nil
	}
	c := *cv
	return &c
}

func copyLocation(lv *LocationValue) *LocationValue {
	if lv == nil {
		return nil
	}
	c := *lv
	if lv.Lat != nil {
		lat := *lv.Lat
		c.Lat = &lat
	}
	if lv.Lng != nil {
		lng := *lv.Lng
		c.Lng = &lng
	}
	return &c
}

// Clamp01 clamps v to [0, 1]
func Clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
