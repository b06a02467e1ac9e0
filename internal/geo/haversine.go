// Package geo provides great-circle distance helpers and the competitor
// radius filters used by layer composition.
package geo

import "math"

const (
	// EarthRadiusKM is the mean Earth radius used for every distance.
	EarthRadiusKM = 6371.0

	// KMPerMile converts statute miles to kilometers.
	KMPerMile = 1.609344

	// MetersPerMile converts statute miles to meters.
	MetersPerMile = 1609.344

	// radiusEpsilon absorbs float noise at the boundary so a point exactly
	// on the radius stays inside. It is far below 1e-4 miles.
	radiusEpsilon = 1e-9
)

// HaversineKM returns the great-circle distance in kilometers between two
// lat/lon points given in degrees.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// HaversineMiles is HaversineKM expressed in statute miles.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKM(lat1, lon1, lat2, lon2) / KMPerMile
}

// WithinRadius reports whether distance <= radius (inclusive boundary).
func WithinRadius(distanceMiles, radiusMiles float64) bool {
	return distanceMiles <= radiusMiles+radiusEpsilon
}

// MilesToMeters converts a radius in miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
