package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus_wayfinder/internal/models"
	"campus_wayfinder/internal/overlay"
)

// Overlay fetches a site's overlay on demand. ErrNotFound means the site has
// none.
func (d *Directory) Overlay(ctx context.Context, siteID uint) (*models.SiteOverlay, error) {
	ov, err := d.overlays.GetOrLoad(ctx, siteID, func(ctx context.Context) (*models.SiteOverlay, error) {
		var row models.SiteOverlay
		err := d.db.WithContext(ctx).Where("site_id = ?", siteID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load overlay: %w", err)
		}
		return &row, nil
	})
	if err != nil {
		return nil, err
	}
	if ov == nil {
		return nil, ErrNotFound
	}
	return ov, nil
}

// SaveOverlay replaces the site's overlay. A nil or empty overlay removes
// it; an image without a box is rejected.
func (d *Directory) SaveOverlay(ctx context.Context, siteID uint, ov *overlay.Overlay) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Site{}, siteID).Error; err != nil {
			return notFound(err)
		}
		return replaceOverlay(tx, siteID, ov)
	})
	if err != nil {
		return err
	}
	d.registry.Invalidate(ctx, TagSites)
	return nil
}

// SaveAlignment persists a committed alignment session: the overlay and the
// site's lobby, parking and drop-off locations, atomically.
func (d *Directory) SaveAlignment(ctx context.Context, draft overlay.Draft) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var site models.Site
		if err := tx.First(&site, draft.SiteID).Error; err != nil {
			return notFound(err)
		}
		applyLocation(&site.LobbyLocation, draft.Locations, overlay.AnchorLobby)
		applyLocation(&site.ParkingLocation, draft.Locations, overlay.AnchorParking)
		applyLocation(&site.DropOffLocation, draft.Locations, overlay.AnchorDropOff)
		if err := site.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if err := tx.Omit(clause.Associations).Save(&site).Error; err != nil {
			return err
		}
		return replaceOverlay(tx, site.ID, &draft.Overlay)
	})
	if err != nil {
		return err
	}
	d.registry.Invalidate(ctx, TagSites)
	return nil
}

// SessionSeed loads what an alignment session starts from.
func (d *Directory) SessionSeed(ctx context.Context, siteID uint) (overlay.Overlay, map[overlay.Anchor]overlay.Location, error) {
	site, err := d.Site(ctx, siteID)
	if err != nil {
		return overlay.Overlay{}, nil, err
	}
	locations := map[overlay.Anchor]overlay.Location{
		overlay.AnchorLobby:   {Point: site.LobbyLocation.Point(), Address: site.LobbyLocation.ClosestStreetAddress},
		overlay.AnchorParking: {Point: site.ParkingLocation.Point(), Address: site.ParkingLocation.ClosestStreetAddress},
		overlay.AnchorDropOff: {Point: site.DropOffLocation.Point(), Address: site.DropOffLocation.ClosestStreetAddress},
	}

	row, err := d.Overlay(ctx, siteID)
	if errors.Is(err, ErrNotFound) {
		return overlay.Overlay{}, locations, nil
	}
	if err != nil {
		return overlay.Overlay{}, nil, err
	}
	return ToOverlay(row), locations, nil
}

// ToOverlay converts a stored overlay row into the alignment value.
func ToOverlay(row *models.SiteOverlay) overlay.Overlay {
	if row == nil {
		return overlay.Overlay{}
	}
	tl, br := row.TopLeft.Point(), row.BottomRight.Point()
	return overlay.Overlay{
		Image:           row.Image,
		ContentType:     row.ContentType,
		RotationDegrees: row.RotationDegrees,
		TopLeft:         &tl,
		BottomRight:     &br,
	}
}

func replaceOverlay(tx *gorm.DB, siteID uint, ov *overlay.Overlay) error {
	if ov != nil {
		if err := ov.Validate(); err != nil {
			return err
		}
	}
	if err := tx.Unscoped().Where("site_id = ?", siteID).Delete(&models.SiteOverlay{}).Error; err != nil {
		return err
	}
	if ov == nil || ov.State() == overlay.Empty {
		return nil
	}

	row := models.SiteOverlay{
		SiteID:          siteID,
		Image:           ov.Image,
		ContentType:     ov.ContentType,
		RotationDegrees: overlay.NormalizeDegrees(ov.RotationDegrees),
		TopLeft:         models.CornerFrom(*ov.TopLeft),
		BottomRight:     models.CornerFrom(*ov.BottomRight),
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return tx.Create(&row).Error
}

func applyLocation(dst *models.MapLocation, locations map[overlay.Anchor]overlay.Location, anchor overlay.Anchor) {
	loc, ok := locations[anchor]
	if !ok {
		return
	}
	dst.Latitude = loc.Point.Latitude
	dst.Longitude = loc.Point.Longitude
	if loc.Address != "" {
		dst.ClosestStreetAddress = loc.Address
	}
}
