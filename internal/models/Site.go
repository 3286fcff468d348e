// internal/models/site.go
package models

import (
	"gorm.io/gorm"

	"campus_wayfinder/internal/geo"
)

// MapLocation is a coordinate plus the street address it reverse-geocodes to.
// The address is derived, never typed in by an operator.
type MapLocation struct {
	Latitude             float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude            float64 `json:"longitude" validate:"gte=-180,lte=180"`
	ClosestStreetAddress string  `json:"closest_street_address"`
}

// Point returns the coordinate part of the location.
func (l MapLocation) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Site is one physical facility of the campus.
// The overlay lives in its own table so list queries never load the raster.
type Site struct {
	gorm.Model

	Name         string  `json:"name" gorm:"not null" validate:"required"`
	ParkingPrice float64 `json:"parking_price" validate:"gte=0,cents"`

	ParkingLocation MapLocation `json:"parking_location" gorm:"embedded;embeddedPrefix:parking_"`
	DropOffLocation MapLocation `json:"drop_off_location" gorm:"embedded;embeddedPrefix:drop_off_"`
	LobbyLocation   MapLocation `json:"lobby_location" gorm:"embedded;embeddedPrefix:lobby_"`

	Overlay *SiteOverlay `json:"overlay,omitempty" gorm:"foreignKey:SiteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
