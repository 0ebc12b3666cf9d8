package geo

import "fleet-tracker/pkg/ontology"

// PositionChanged reports whether next differs from old in either
// coordinate. Comparison is exact: resubmitting bit-identical coordinates
// is a no-op. A truck that has never had a position counts as changed.
func PositionChanged(old *ontology.Position, next ontology.Position) bool {
	if old == nil {
		return true
	}
	return next.Latitude != old.Latitude || next.Longitude != old.Longitude
}

// Centroid returns the arithmetic mean of latitudes and longitudes
// independently. This is a planar average, good enough to center a map at
// fleet scale, not for geodesy. An empty input returns fallback.
func Centroid(positions []ontology.Position, fallback ontology.Position) ontology.Position {
	if len(positions) == 0 {
		return fallback
	}

	var lat, lon float64
	for _, p := range positions {
		lat += p.Latitude
		lon += p.Longitude
	}

	n := float64(len(positions))
	return ontology.Position{
		Latitude:  lat / n,
		Longitude: lon / n,
	}
}
