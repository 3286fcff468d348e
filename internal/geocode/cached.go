package geocode

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

// cachePrecision is the number of decimal places a point is rounded to
// before it is used as a cache key (about 11 cm).
const cachePrecision = 6

// Store persists resolved addresses.
type Store interface {
	Lookup(ctx context.Context, p geo.Point, now time.Time) (string, bool, error)
	Save(ctx context.Context, p geo.Point, address string, expiresAt time.Time) error
}

// CachedGeocoder decorates a Geocoder with a persistent cache and collapses
// identical in-flight lookups into one provider call.
type CachedGeocoder struct {
	next  Geocoder
	store Store
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

func NewCachedGeocoder(next Geocoder, store Store, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, store: store, ttl: ttl, now: time.Now}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	p = roundPoint(p)

	address, ok, err := c.store.Lookup(ctx, p, c.now())
	if err != nil {
		logrus.WithError(err).WithField("point", p.String()).Warn("geocode cache lookup failed")
	} else if ok {
		return address, nil
	}

	v, err, _ := c.group.Do(p.String(), func() (interface{}, error) {
		address, err := c.next.ReverseGeocode(ctx, p)
		if err != nil {
			return "", err
		}
		if err := c.store.Save(ctx, p, address, c.now().Add(c.ttl)); err != nil {
			logrus.WithError(err).WithField("point", p.String()).Warn("geocode cache save failed")
		}
		return address, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func roundPoint(p geo.Point) geo.Point {
	scale := math.Pow(10, cachePrecision)
	return geo.Point{
		Latitude:  math.Round(p.Latitude*scale) / scale,
		Longitude: math.Round(p.Longitude*scale) / scale,
	}
}

// GormStore keeps the geocode cache in the geocode_cache table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Lookup(ctx context.Context, p geo.Point, now time.Time) (string, bool, error) {
	var row models.GeocodeCache
	err := s.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", cacheKey(p), now).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Address, true, nil
}

func (s *GormStore) Save(ctx context.Context, p geo.Point, address string, expiresAt time.Time) error {
	key := cacheKey(p)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cache_key = ?", key).Delete(&models.GeocodeCache{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.GeocodeCache{
			CacheKey:  key,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Address:   address,
			ExpiresAt: expiresAt,
		}).Error
	})
}

func cacheKey(p geo.Point) string {
	return strconv.FormatFloat(p.Latitude, 'f', cachePrecision, 64) + "," +
		strconv.FormatFloat(p.Longitude, 'f', cachePrecision, 64)
}
