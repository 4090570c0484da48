package flightradar

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Region is a latitude/longitude box in decimal degrees.
type Region struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// String renders the region the way the feed's bounds parameter expects it.
func (r Region) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", r.North, r.South, r.West, r.East)
}

// Contains reports whether the point lies inside the region.
func (r Region) Contains(lat, lon float64) bool {
	return lat <= r.North && lat >= r.South && lon >= r.West && lon <= r.East
}

// BoundsAround returns the square with half-side radiusMeters centred on the
// point. The corners are projected along the diagonal on a spherical earth.
func BoundsAround(lat, lon, radiusMeters float64) Region {
	halfSide := math.Abs(radiusMeters) / 1000
	diagonal := math.Sqrt(2*halfSide*halfSide) / earthRadiusKm

	south, west := project(lat, lon, 225, diagonal)
	north, east := project(lat, lon, 45, diagonal)
	return Region{North: north, South: south, West: west, East: east}
}

// project moves from (lat, lon) along bearing (degrees) by the angular
// distance delta (radians).
func project(lat, lon, bearing, delta float64) (float64, float64) {
	phi := radians(lat)
	lambda := radians(lon)
	theta := radians(bearing)

	phi2 := math.Asin(math.Sin(phi)*math.Cos(delta) + math.Cos(phi)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*math.Sin(phi2),
	)
	return degrees(phi2), degrees(lambda2)
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
