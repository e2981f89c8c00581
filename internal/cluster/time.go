package cluster

import "time"

// TimeProximityScore maps the distance between two ISO-8601 timestamps to a
// similarity in [0, 1]: 1.0 within an hour, decaying in bands to 0.1 beyond
// seven days. A missing or unparseable timestamp on either side is neutral.
func TimeProximityScore(t1, t2 string) float64 {
	if t1 == "" || t2 == "" {
		return 0.5
	}
	d1, ok1 := parseISO(t1)
	d2, ok2 := parseISO(t2)
	if !ok1 || !ok2 {
		return 0.5
	}
	delta := d1.Sub(d2)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= time.Hour:
		return 1.0
	case delta <= 6*time.Hour:
		return 0.8
	case delta <= 24*time.Hour:
		return 0.6
	case delta <= 7*24*time.Hour:
		return 0.3
	default:
		return 0.1
	}
}

// parseISO accepts RFC3339 with or without offset; naive timestamps are UTC
func parseISO(s string) (time.Time, bool) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
