package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/geocode"
	"campus_wayfinder/internal/navigation"
)

// SiteNavigation tells the user how to reach a site from ?lat=&lng=. An
// absent or unusable position is treated as far away.
func (ctl *Controller) SiteNavigation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	g, err := ctl.guidance(c.Request.Context(), id, queryPoint(c, "lat", "lng"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guidance": g})
}

// Directions links to turn-by-turn directions, for example back to a parked
// car.
func (ctl *Controller) Directions(c *gin.Context) {
	dest := queryPoint(c, "dest_lat", "dest_lng")
	if dest == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dest_lat and dest_lng are required"})
		return
	}
	url, err := navigation.Directions(queryPoint(c, "origin_lat", "origin_lng"), *dest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Autocomplete suggests places for the search box, biased towards ?lat=&lng=.
func (ctl *Controller) Autocomplete(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if ctl.Places == nil {
		respondError(c, geocode.ErrNotConfigured)
		return
	}

	predictions, err := ctl.Places.Autocomplete(c.Request.Context(), q, queryPoint(c, "lat", "lng"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": predictions})
}

func (ctl *Controller) guidance(ctx context.Context, siteID uint, user *geo.Point) (navigation.Guidance, error) {
	site, err := ctl.Directory.Site(ctx, siteID)
	if err != nil {
		return navigation.Guidance{}, err
	}
	return navigation.Guide(site, user, ctl.hasFloorPlan(ctx, siteID)), nil
}

func (ctl *Controller) hasFloorPlan(ctx context.Context, siteID uint) bool {
	_, err := ctl.Directory.Overlay(ctx, siteID)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		logrus.WithError(err).WithField("site_id", siteID).Warn("overlay lookup failed")
	}
	return err == nil
}
