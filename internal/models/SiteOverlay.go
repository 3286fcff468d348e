package models

import (
	"gorm.io/gorm"

	"campus_wayfinder/internal/geo"
)

// Corner is one corner of an overlay's bounding box.
type Corner struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (c Corner) Point() geo.Point {
	return geo.Point{Latitude: c.Latitude, Longitude: c.Longitude}
}

func CornerFrom(p geo.Point) Corner {
	return Corner{Latitude: p.Latitude, Longitude: p.Longitude}
}

// SiteOverlay is the floor-plan raster aligned over a site. TopLeft holds the
// north-east corner and BottomRight the south-west corner of the box.
type SiteOverlay struct {
	gorm.Model

	SiteID          uint    `json:"site_id" gorm:"uniqueIndex;not null"`
	Image           []byte  `json:"-" gorm:"type:bytea"`
	ContentType     string  `json:"content_type"`
	RotationDegrees float64 `json:"rotation_degrees" validate:"gte=0,lt=360"`

	TopLeft     Corner `json:"top_left" gorm:"embedded;embeddedPrefix:top_left_"`
	BottomRight Corner `json:"bottom_right" gorm:"embedded;embeddedPrefix:bottom_right_"`
}
