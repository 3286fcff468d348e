package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

// SitePatch carries the fields of a partial site update; nil fields are left
// unchanged.
type SitePatch struct {
	Name            *string             `json:"name"`
	ParkingPrice    *float64            `json:"parking_price"`
	ParkingLocation *models.MapLocation `json:"parking_location"`
	DropOffLocation *models.MapLocation `json:"drop_off_location"`
	LobbyLocation   *models.MapLocation `json:"lobby_location"`
}

func (p SitePatch) apply(s *models.Site) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ParkingPrice != nil {
		s.ParkingPrice = *p.ParkingPrice
	}
	if p.ParkingLocation != nil {
		s.ParkingLocation = *p.ParkingLocation
	}
	if p.DropOffLocation != nil {
		s.DropOffLocation = *p.DropOffLocation
	}
	if p.LobbyLocation != nil {
		s.LobbyLocation = *p.LobbyLocation
	}
}

// Sites lists every site by name, without overlays. The slice is shared
// with the cache and must not be modified.
func (d *Directory) Sites(ctx context.Context) ([]models.Site, error) {
	return d.sites.GetOrLoad(ctx, listKey, func(ctx context.Context) ([]models.Site, error) {
		var sites []models.Site
		if err := d.db.WithContext(ctx).Order("name").Find(&sites).Error; err != nil {
			return nil, fmt.Errorf("list sites: %w", err)
		}
		d.rebuildIndex(sites)
		return sites, nil
	})
}

// Site returns one site without its overlay.
func (d *Directory) Site(ctx context.Context, id uint) (models.Site, error) {
	sites, err := d.Sites(ctx)
	if err != nil {
		return models.Site{}, err
	}
	for _, s := range sites {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Site{}, ErrNotFound
}

func (d *Directory) CreateSite(ctx context.Context, site *models.Site) error {
	site.Overlay = nil
	if err := site.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := d.db.WithContext(ctx).Create(site).Error; err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	d.registry.Invalidate(ctx, TagSites)
	return nil
}

// UpdateSite applies patch to the stored site.
func (d *Directory) UpdateSite(ctx context.Context, id uint, patch SitePatch) (models.Site, error) {
	var site models.Site
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&site, id).Error; err != nil {
			return notFound(err)
		}
		patch.apply(&site)
		if err := site.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return tx.Omit(clause.Associations).Save(&site).Error
	})
	if err != nil {
		return models.Site{}, err
	}
	d.registry.Invalidate(ctx, TagSites)
	return site, nil
}

// DeleteSite removes the site and its overlay. Services that were in the
// site keep existing without a building.
func (d *Directory) DeleteSite(ctx context.Context, id uint) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Site{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Service{}).Where("building_id = ?", id).
			Update("building_id", nil).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("site_id = ?", id).Delete(&models.SiteOverlay{}).Error
	})
	if err != nil {
		return err
	}
	d.registry.Invalidate(ctx, TagSites)
	return nil
}

// Nearest returns up to k sites ordered by distance from p to their lobby.
func (d *Directory) Nearest(ctx context.Context, p geo.Point, k int) ([]geo.Ranked, error) {
	if _, err := d.Sites(ctx); err != nil {
		return nil, err
	}
	return d.index.Nearest(p, k), nil
}

func (d *Directory) rebuildIndex(sites []models.Site) {
	places := make([]geo.Place, 0, len(sites))
	for _, s := range sites {
		places = append(places, geo.Place{ID: s.ID, Name: s.Name, Location: s.LobbyLocation.Point()})
	}
	d.index.Rebuild(places)
}

// GeoJSON renders every site's lobby, parking and drop-off points plus the
// bounds of each aligned overlay.
func (d *Directory) GeoJSON(ctx context.Context) ([]geo.Marker, []geo.Area, error) {
	sites, err := d.Sites(ctx)
	if err != nil {
		return nil, nil, err
	}

	markers := make([]geo.Marker, 0, len(sites)*3)
	var areas []geo.Area
	for _, s := range sites {
		for _, loc := range []struct {
			kind string
			l    models.MapLocation
		}{
			{"lobby", s.LobbyLocation},
			{"parking", s.ParkingLocation},
			{"drop_off", s.DropOffLocation},
		} {
			markers = append(markers, geo.Marker{
				ID:       fmt.Sprintf("site-%d-%s", s.ID, loc.kind),
				Kind:     loc.kind,
				Name:     s.Name,
				Address:  loc.l.ClosestStreetAddress,
				Location: loc.l.Point(),
			})
		}

		ov, err := d.Overlay(ctx, s.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		areas = append(areas, geo.Area{
			ID:        fmt.Sprintf("site-%d-overlay", s.ID),
			Name:      s.Name,
			NorthEast: ov.TopLeft.Point(),
			SouthWest: ov.BottomRight.Point(),
		})
	}
	return markers, areas, nil
}
