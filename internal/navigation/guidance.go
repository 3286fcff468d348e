// Package navigation turns a user's position and a site into wayfinding
// guidance: step inside with the floor plan when close to the lobby, or
// drive to the parking or drop-off point otherwise.
package navigation

import (
	"errors"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

// ErrAlreadyThere is returned when the origin and destination are the same spot.
var ErrAlreadyThere = errors.New("navigation: already at destination")

type Mode string

const (
	Indoor  Mode = "indoor"
	Outdoor Mode = "outdoor"
)

// Guidance is what the client shows for one site.
type Guidance struct {
	SiteID         uint          `json:"site_id"`
	SiteName       string        `json:"site_name"`
	Proximity      geo.Proximity `json:"proximity"`
	DistanceMeters *float64      `json:"distance_m,omitempty"`
	BearingDegrees *float64      `json:"bearing_deg,omitempty"`
	Mode           Mode          `json:"mode"`
	HasFloorPlan   bool          `json:"has_floor_plan"`
	ParkingURL     string        `json:"parking_url,omitempty"`
	DropOffURL     string        `json:"drop_off_url,omitempty"`
}

// Guide classifies user against the site's lobby. A nil user means the
// position is unknown and is treated as far away.
func Guide(site models.Site, user *geo.Point, hasFloorPlan bool) Guidance {
	lobby := site.LobbyLocation.Point()
	g := Guidance{
		SiteID:       site.ID,
		SiteName:     site.Name,
		Proximity:    geo.ProximityOf(user, lobby),
		HasFloorPlan: hasFloorPlan,
	}
	if user != nil {
		d := geo.HaversineDistanceMeters(*user, lobby)
		b := geo.Bearing(*user, lobby)
		g.DistanceMeters = &d
		g.BearingDegrees = &b
	}

	if g.Proximity == geo.Near {
		g.Mode = Indoor
		return g
	}
	g.Mode = Outdoor
	g.ParkingURL = geo.DirectionsURL(user, site.ParkingLocation.Point())
	g.DropOffURL = geo.DirectionsURL(user, site.DropOffLocation.Point())
	return g
}

// Directions links from origin to destination, refusing when they are the
// same spot.
func Directions(origin *geo.Point, destination geo.Point) (string, error) {
	if origin != nil && geo.SameSpot(*origin, destination) {
		return "", ErrAlreadyThere
	}
	return geo.DirectionsURL(origin, destination), nil
}
