package overlay

import (
	"math"

	"campus_wayfinder/internal/geo"
)

// DefaultHalfExtentDegrees is the half width and half height of a new box,
// roughly 28 m at mid latitudes.
const DefaultHalfExtentDegrees = 0.00025

// DefaultBounds returns the starting box centred on center, as
// (north-east, south-west).
func DefaultBounds(center geo.Point) (topLeft, bottomRight geo.Point) {
	topLeft = geo.Point{
		Latitude:  center.Latitude + DefaultHalfExtentDegrees,
		Longitude: center.Longitude + DefaultHalfExtentDegrees,
	}
	bottomRight = geo.Point{
		Latitude:  center.Latitude - DefaultHalfExtentDegrees,
		Longitude: center.Longitude - DefaultHalfExtentDegrees,
	}
	return topLeft, bottomRight
}

// NormalizeCorners turns any two opposite corners of a dragged rectangle into
// (north-east, south-west).
func NormalizeCorners(a, b geo.Point) (topLeft, bottomRight geo.Point) {
	topLeft = geo.Point{
		Latitude:  math.Max(a.Latitude, b.Latitude),
		Longitude: math.Max(a.Longitude, b.Longitude),
	}
	bottomRight = geo.Point{
		Latitude:  math.Min(a.Latitude, b.Latitude),
		Longitude: math.Min(a.Longitude, b.Longitude),
	}
	return topLeft, bottomRight
}

// Center returns the midpoint of the box.
func Center(topLeft, bottomRight geo.Point) geo.Point {
	return geo.Point{
		Latitude:  (topLeft.Latitude + bottomRight.Latitude) / 2,
		Longitude: (topLeft.Longitude + bottomRight.Longitude) / 2,
	}
}
