package utils

import (
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for map distances
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two points
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lng2 - lng1)

	h := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(math.Min(1, h)))
}

// MetersPerPixel returns the ground resolution of a 256px Web Mercator tile
// pyramid at the given latitude and zoom level
func MetersPerPixel(lat float64, zoom int) float64 {
	const equatorMetersPerPixel = 156543.03392
	return equatorMetersPerPixel * math.Cos(radians(lat)) / math.Pow(2, float64(zoom))
}

// Clamp limits a value between lo and hi
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// Lerp maps t in [0,1] onto [a,b]
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
