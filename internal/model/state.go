package model

// IncidentState is the read-only serialized projection of an incident, the
// stable shape served to API clients and dashboards. Confidences are rounded
// to 4 decimal places, coordinates to 6.
type IncidentState struct {
	IncidentID     string          `json:"incident_id"`
	LastUpdated    string          `json:"last_updated,omitempty"`
	DeviceLocation *LocationState  `json:"device_location"`
	Locations      []LocationState `json:"locations"`
	IncidentType   *ValueState     `json:"incident_type"`
	PeopleEstimate *ValueState     `json:"people_estimate"`
	Hazards        []ValueState    `json:"hazards"`
	TimelineCount  int             `json:"timeline_count"`
	Timeline       []EventState    `json:"timeline"`
}

// ValueState is the serialized form of a ConfidenceValue
type ValueState struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// LocationState is the serialized form of a LocationValue
type LocationState struct {
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// EventState is the serialized form of a TimelineEvent
type EventState struct {
	Time       string         `json:"time"`
	ClaimType  ClaimType      `json:"claim_type"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	SourceText string         `json:"source_text"`
	CallerID   string         `json:"caller_id,omitempty"`
	CallerInfo map[string]any `json:"caller_info,omitempty"`
}

// State serializes the incident for API clients
func (in *Incident) State() IncidentState {
	st := IncidentState{
		IncidentID:    in.ID,
		LastUpdated:   in.LastUpdated,
		Locations:     []LocationState{},
		Hazards:       []ValueState{},
		Timeline:      []EventState{},
		TimelineCount: len(in.Timeline),
	}
	if in.DeviceLocation != nil {
		dl := locationState(in.DeviceLocation)
		st.DeviceLocation = &dl
	}
	for _, loc := range in.Locations {
		st.Locations = append(st.Locations, locationState(loc))
	}
	if in.IncidentType != nil {
		st.IncidentType = &ValueState{Value: in.IncidentType.Value, Confidence: Round(in.IncidentType.Confidence, 4)}
	}
	if in.PeopleEstimate != nil {
		st.PeopleEstimate = &ValueState{Value: in.PeopleEstimate.Value, Confidence: Round(in.PeopleEstimate.Confidence, 4)}
	}
	for _, h := range in.Hazards {
		st.Hazards = append(st.Hazards, ValueState{Value: h.Value, Confidence: Round(h.Confidence, 4)})
	}
	for _, e := range in.Timeline {
		st.Timeline = append(st.Timeline, EventState{
			Time:       e.Time,
			ClaimType:  e.ClaimType,
			Value:      e.Value,
			Confidence: Round(e.Confidence, 4),
			SourceText: e.SourceText,
			CallerID:   e.CallerID,
			CallerInfo: e.CallerInfo,
		})
	}
	return st
}

func locationState(lv *LocationValue) LocationState {
	out := LocationState{Value: lv.Value, Confidence: Round(lv.Confidence, 4)}
	if lv.Lat != nil {
		lat := Round(*lv.Lat, 6)
		out.Lat = &lat
	}
	if lv.Lng != nil {
		lng := Round(*lv.Lng, 6)
		out.Lng = &lng
	}
	return out
}
