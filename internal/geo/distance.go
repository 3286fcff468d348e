// Package geo holds the geodesy helpers used by navigation: great-circle
// distance, proximity banding and directions links.
package geo

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
	EarthRadiusMeters = 6371000

	NearThresholdMeters   = 100
	MediumThresholdMeters = 2000

	// sameSpotDegrees is how close (in degrees, per axis) two points must be
	// to count as the same spot.
	sameSpotDegrees = 0.0001
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func (p Point) String() string {
	return formatCoord(p.Latitude) + "," + formatCoord(p.Longitude)
}

// Proximity is the distance band between a user and a destination.
type Proximity string

const (
	Near   Proximity = "near"
	Medium Proximity = "medium"
	Far    Proximity = "far"
)

// HaversineDistanceMeters returns the great-circle distance between a and b.
// Inputs are not validated; NaN propagates.
func HaversineDistanceMeters(a, b Point) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// ClassifyProximity bands a distance. Thresholds are exclusive upper bounds
// of the tighter band, so exactly 100 m is Medium and exactly 2000 m is Far.
func ClassifyProximity(distanceMeters float64) Proximity {
	if distanceMeters < NearThresholdMeters {
		return Near
	}
	if distanceMeters < MediumThresholdMeters {
		return Medium
	}
	return Far
}

// ProximityOf classifies the user's distance to target. A nil user means the
// position is unknown, which is treated as Far.
func ProximityOf(user *Point, target Point) Proximity {
	if user == nil {
		return Far
	}
	return ClassifyProximity(HaversineDistanceMeters(*user, target))
}

// SameSpot reports whether a and b are within a few metres of each other.
func SameSpot(a, b Point) bool {
	return math.Abs(a.Latitude-b.Latitude) < sameSpotDegrees &&
		math.Abs(a.Longitude-b.Longitude) < sameSpotDegrees
}

// DirectionsURL builds an external driving-directions link. Without an
// origin the maps app picks the device's current location.
func DirectionsURL(origin *Point, destination Point) string {
	if origin == nil {
		return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s", destination)
	}
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s", *origin, destination)
}

// Bearing returns the initial bearing from a to b in degrees, in [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
