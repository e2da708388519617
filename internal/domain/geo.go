package domain

import "math"

// Mean Earth radius in meters.
const EarthRadiusMeters = 6371008.8

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// GreatCircleMeters returns the haversine distance between a and b.
func GreatCircleMeters(a, b Coordinates) float64 {
	if a == b {
		return 0
	}

	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	la1 := toRadians(a.Lat)
	la2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h marginally past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial compass bearing from -> to in degrees, in [0, 360).
// Identical points have bearing 0.
func Bearing(from, to Coordinates) float64 {
	if from == to {
		return 0
	}

	la1 := toRadians(from.Lat)
	la2 := toRadians(to.Lat)
	dLon := toRadians(to.Lon - from.Lon)

	y := math.Sin(dLon) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)

	deg := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}
