package cluster

import (
	"math"
	"strconv"

	"github.com/ppiankov/sitrep/internal/model"
)

// EarthRadiusM is the spherical Earth radius in metres
const EarthRadiusM = 6_371_000

// Haversine returns the great-circle distance in metres between two points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(x), math.Sqrt(1-x))
	return EarthRadiusM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// GeoProximityScore maps the distance between the report's device position
// and the incident's location to a similarity in [0, 1]: 1.0 within 50m,
// decaying in bands to 0.1 beyond 2km. The incident side prefers the device
// location and falls back to its first location carrying coordinates. Missing
// coordinates on either side are neutral.
func GeoProximityScore(reportLat, reportLng *float64, incident *model.Incident) float64 {
	if reportLat == nil || reportLng == nil || incident == nil {
		return 0.5
	}
	incLat, incLng := incidentCoordinates(incident)
	if incLat == nil || incLng == nil {
		return 0.5
	}
	dist := Haversine(*reportLat, *reportLng, *incLat, *incLng)
	switch {
	case dist <= 50:
		return 1.0
	case dist <= 200:
		return 0.9
	case dist <= 500:
		return 0.7
	case dist <= 1000:
		return 0.5
	case dist <= 2000:
		return 0.3
	default:
		return 0.1
	}
}

func incidentCoordinates(incident *model.Incident) (*float64, *float64) {
	if dl := incident.DeviceLocation; dl != nil && dl.Lat != nil && dl.Lng != nil {
		return dl.Lat, dl.Lng
	}
	for _, loc := range incident.Locations {
		if loc.Lat != nil && loc.Lng != nil {
			return loc.Lat, loc.Lng
		}
	}
	return nil, nil
}

// DeviceGeoSnippet renders "lat,lng" rounded to 3 decimal places for summary
// text, so reports from the same building produce the same snippet. Empty
// when either coordinate is missing.
func DeviceGeoSnippet(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return ""
	}
	return strconv.FormatFloat(model.Round(*lat, 3), 'f', -1, 64) + "," +
		strconv.FormatFloat(model.Round(*lng, 3), 'f', -1, 64)
}
