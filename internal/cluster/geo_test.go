package cluster

import (
	"math"
	"testing"

	"github.com/ppiankov/sitrep/internal/model"
)

func TestHaversine_SamePointIsZero(t *testing.T) {
	if d := Haversine(55.7558, 37.6173, 55.7558, 37.6173); d != 0 {
		t.Errorf("Expected 0 metres, got %.2f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Roughly 111 metres per 0.001 degrees of latitude
	d := Haversine(55.7558, 37.6173, 55.7568, 37.6173)
	if math.Abs(d-111.2) > 1.0 {
		t.Errorf("Expected ~111.2 metres, got %.2f", d)
	}
}

func ptr(f float64) *float64 { return &f }

func incidentAt(lat, lng float64) *model.Incident {
	in := model.NewIncident("incident-001")
	in.SetDeviceLocation(lat, lng, 0.9, "2025-03-01T12:00:00Z")
	return in
}

func TestGeoProximityScore_Bands(t *testing.T) {
	// Offsets chosen in latitude degrees: 0.001 deg ~ 111 metres
	tests := []struct {
		name     string
		dLat     float64
		expected float64
	}{
		{"same point", 0, 1.0},
		{"within 200m", 0.001, 0.9},
		{"within 500m", 0.003, 0.7},
		{"within 1km", 0.008, 0.5},
		{"within 2km", 0.015, 0.3},
		{"beyond 2km", 0.05, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := incidentAt(55.7558, 37.6173)
			got := GeoProximityScore(ptr(55.7558+tt.dLat), ptr(37.6173), in)
			if got != tt.expected {
				t.Errorf("Expected %.2f, got %.2f", tt.expected, got)
			}
		})
	}
}

func TestGeoProximityScore_MissingCoordinatesNeutral(t *testing.T) {
	in := incidentAt(55.7558, 37.6173)
	if got := GeoProximityScore(nil, nil, in); got != 0.5 {
		t.Errorf("Expected neutral for missing report coords, got %.2f", got)
	}
	bare := model.NewIncident("incident-002")
	if got := GeoProximityScore(ptr(55.7558), ptr(37.6173), bare); got != 0.5 {
		t.Errorf("Expected neutral for incident without coords, got %.2f", got)
	}
}

func TestGeoProximityScore_FallsBackToLocationCoords(t *testing.T) {
	in := model.NewIncident("incident-003")
	loc := model.NewLocationValue("123 Main St", 0.8, ptr(55.7558), ptr(37.6173))
	in.Locations = append(in.Locations, &loc)

	if got := GeoProximityScore(ptr(55.7558), ptr(37.6173), in); got != 1.0 {
		t.Errorf("Expected 1.0 via location fallback, got %.2f", got)
	}
}

func TestDeviceGeoSnippet(t *testing.T) {
	if got := DeviceGeoSnippet(ptr(55.75584), ptr(37.61732)); got != "55.756,37.617" {
		t.Errorf("Expected 55.756,37.617, got %q", got)
	}
	if got := DeviceGeoSnippet(nil, ptr(37.6)); got != "" {
		t.Errorf("Expected empty snippet, got %q", got)
	}
}
