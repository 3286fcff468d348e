// Package directory is the campus directory: sites, the services offered in
// them and the floor-plan overlays drawn over them. Reads are served from
// tag-invalidated caches; every mutation invalidates the tags it touches.
package directory

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"campus_wayfinder/internal/cache"
	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

var (
	ErrNotFound = errors.New("directory: not found")
	ErrInvalid  = errors.New("directory: invalid input")
)

// Cache tags.
const (
	TagSites    = "sites"
	TagServices = "services"
)

const listKey = "all"

// Directory reads and writes the campus directory.
type Directory struct {
	db       *gorm.DB
	registry *cache.Registry

	sites    *cache.Cache[string, []models.Site]
	services *cache.Cache[string, []models.Service]
	overlays *cache.Cache[uint, *models.SiteOverlay]

	index *geo.SiteIndex
}

// New wires the directory caches into registry. revalidate is how long a
// cached read may be served before it is reloaded.
func New(db *gorm.DB, registry *cache.Registry, revalidate time.Duration) *Directory {
	d := &Directory{
		db:       db,
		registry: registry,
		sites:    cache.New[string, []models.Site]("sites", revalidate, TagSites),
		services: cache.New[string, []models.Service]("services", revalidate, TagServices, TagSites),
		overlays: cache.New[uint, *models.SiteOverlay]("overlays", revalidate, TagSites),
		index:    geo.NewSiteIndex(nil),
	}
	registry.Register(d.sites, d.services, d.overlays)
	return d
}

// Migrate creates or updates the directory tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Site{},
		&models.SiteOverlay{},
		&models.Service{},
		&models.User{},
		&models.GeocodeCache{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
