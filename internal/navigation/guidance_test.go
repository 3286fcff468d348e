package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

func patriotSite() models.Site {
	s := models.Site{
		Name:            "Patriot",
		LobbyLocation:   models.MapLocation{Latitude: 42.3364, Longitude: -71.1065},
		ParkingLocation: models.MapLocation{Latitude: 42.3363, Longitude: -71.1057},
		DropOffLocation: models.MapLocation{Latitude: 42.3361, Longitude: -71.1063},
	}
	s.ID = 3
	return s
}

func TestGuide_UnknownPositionIsFar(t *testing.T) {
	g := Guide(patriotSite(), nil, true)
	assert.Equal(t, geo.Far, g.Proximity)
	assert.Equal(t, Outdoor, g.Mode)
	assert.Nil(t, g.DistanceMeters)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=42.3363,-71.1057", g.ParkingURL)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=42.3361,-71.1063", g.DropOffURL)
}

func TestGuide_NearGoesIndoor(t *testing.T) {
	user := geo.Point{Latitude: 42.3365, Longitude: -71.1065}
	g := Guide(patriotSite(), &user, true)
	assert.Equal(t, geo.Near, g.Proximity)
	assert.Equal(t, Indoor, g.Mode)
	assert.True(t, g.HasFloorPlan)
	assert.Empty(t, g.ParkingURL)
	require.NotNil(t, g.DistanceMeters)
	assert.InDelta(t, 11.1, *g.DistanceMeters, 0.5)
	require.NotNil(t, g.BearingDegrees)
	assert.InDelta(t, 180, *g.BearingDegrees, 0.5)
}

func TestGuide_MediumDistance(t *testing.T) {
	user := geo.Point{Latitude: 42.3400, Longitude: -71.1065}
	g := Guide(patriotSite(), &user, false)
	assert.Equal(t, geo.Medium, g.Proximity)
	assert.Equal(t, Outdoor, g.Mode)
	assert.Contains(t, g.ParkingURL, "origin=42.34,-71.1065")
}

func TestDirections(t *testing.T) {
	car := geo.Point{Latitude: 42.3363, Longitude: -71.1057}

	_, err := Directions(&geo.Point{Latitude: 42.33635, Longitude: -71.10565}, car)
	assert.ErrorIs(t, err, ErrAlreadyThere)

	url, err := Directions(&geo.Point{Latitude: 42.3002, Longitude: -71.127}, car)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&origin=42.3002,-71.127&destination=42.3363,-71.1057", url)

	url, err = Directions(nil, car)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=42.3363,-71.1057", url)
}
