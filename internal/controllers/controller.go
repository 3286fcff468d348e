package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/cache"
	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/geocode"
	"campus_wayfinder/internal/middleware"
	"campus_wayfinder/internal/navigation"
	"campus_wayfinder/internal/overlay"
)

// Controller holds what the HTTP handlers depend on.
type Controller struct {
	Directory *directory.Directory
	Geocoder  geocode.Geocoder
	Places    geocode.PlaceSearcher
	Auth      *middleware.Auth

	// Sessions holds open alignment sessions by ID.
	Sessions *cache.Cache[string, *overlay.Session]
	// Rendered holds each site's rotated overlay PNG.
	Rendered *cache.Cache[uint, []byte]
	// Hub pushes refreshed guidance to navigation sockets when a site
	// changes. Optional.
	Hub *SiteHub
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, overlay.ErrIncompleteOverlay):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, directory.ErrInvalid),
		errors.Is(err, overlay.ErrNoImage),
		errors.Is(err, overlay.ErrInvalidImage),
		errors.Is(err, overlay.ErrUnsupportedRotation),
		errors.Is(err, overlay.ErrInvalidLocation),
		errors.Is(err, overlay.ErrInvalidCorner),
		errors.Is(err, overlay.ErrUnknownAnchor):
		status = http.StatusBadRequest
	case errors.Is(err, directory.ErrEmailTaken),
		errors.Is(err, navigation.ErrAlreadyThere):
		status = http.StatusConflict
	case errors.Is(err, directory.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, geocode.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryPoint reads a position from two query parameters. Missing or
// malformed values yield nil: the position is unknown.
func queryPoint(c *gin.Context, latKey, lngKey string) *geo.Point {
	lat, errLat := strconv.ParseFloat(c.Query(latKey), 64)
	lng, errLng := strconv.ParseFloat(c.Query(lngKey), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	p := geo.Point{Latitude: lat, Longitude: lng}
	if !p.Valid() {
		return nil
	}
	return &p
}
