package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Marker is a labelled point feature, e.g. a site's lobby.
type Marker struct {
	ID       string
	Kind     string
	Name     string
	Address  string
	Location Point
}

// Area is a geographic rectangle given by its north-east and south-west corners.
type Area struct {
	ID        string
	Name      string
	NorthEast Point
	SouthWest Point
}

// FeatureCollection renders markers as Point features and areas as Polygon
// features. GeoJSON coordinates are [longitude, latitude].
func FeatureCollection(markers []Marker, areas []Area) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(markers)+len(areas))}

	for _, m := range markers {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       m.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{m.Location.Longitude, m.Location.Latitude}),
			Properties: map[string]interface{}{
				"kind":    m.Kind,
				"name":    m.Name,
				"address": m.Address,
			},
		})
	}

	for _, a := range areas {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       a.ID,
			Geometry: BoundsPolygon(a.NorthEast, a.SouthWest),
			Properties: map[string]interface{}{
				"kind": "overlay_bounds",
				"name": a.Name,
			},
		})
	}

	return fc
}

// BoundsPolygon returns the closed counter-clockwise ring for the rectangle
// spanned by the north-east and south-west corners.
func BoundsPolygon(northEast, southWest Point) *geom.Polygon {
	ring := []geom.Coord{
		{southWest.Longitude, southWest.Latitude},
		{northEast.Longitude, southWest.Latitude},
		{northEast.Longitude, northEast.Latitude},
		{southWest.Longitude, northEast.Latitude},
		{southWest.Longitude, southWest.Latitude},
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}
