package server

import "github.com/ppiankov/sitrep/internal/model"

// ChunkRequest is the ingest payload for one transcript chunk
type ChunkRequest struct {
	Text        string         `json:"text"`
	IncidentID  string         `json:"incident_id"`
	DeviceLat   *float64       `json:"device_lat"`
	DeviceLng   *float64       `json:"device_lng"`
	AutoCluster bool           `json:"auto_cluster"`
	CallerID    string         `json:"caller_id"`
	CallerInfo  map[string]any `json:"caller_info"`
}

// ChunkResponse reports where the chunk landed
type ChunkResponse struct {
	IncidentID   string              `json:"incident_id"`
	Summary      model.IncidentState `json:"summary"`
	ClaimsAdded  int                 `json:"claims_added"`
	ClusterScore *float64            `json:"cluster_score,omitempty"`
	ClusterNew   *bool               `json:"cluster_new,omitempty"`
}

// IncidentListResponse lists known incident ids
type IncidentListResponse struct {
	IncidentIDs []string `json:"incident_ids"`
}

// TimelineResponse returns one incident's timeline only
type TimelineResponse struct {
	IncidentID string             `json:"incident_id"`
	Timeline   []model.EventState `json:"timeline"`
}
