package models

import "time"

// GeocodeCache remembers reverse-geocoding answers per rounded coordinate.
type GeocodeCache struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CacheKey  string    `gorm:"size:64;not null;uniqueIndex" json:"cache_key"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	Address   string    `gorm:"size:500;not null" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (GeocodeCache) TableName() string {
	return "geocode_cache"
}
