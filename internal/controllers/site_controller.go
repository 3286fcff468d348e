package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
)

const maxNearest = 20

type siteInput struct {
	Name            string             `json:"name" binding:"required"`
	ParkingPrice    float64            `json:"parking_price" binding:"gte=0"`
	ParkingLocation models.MapLocation `json:"parking_location"`
	DropOffLocation models.MapLocation `json:"drop_off_location"`
	LobbyLocation   models.MapLocation `json:"lobby_location"`
}

// ListSites lists every site without overlays
func (ctl *Controller) ListSites(c *gin.Context) {
	sites, err := ctl.Directory.Sites(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sites})
}

func (ctl *Controller) GetSite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	site, err := ctl.Directory.Site(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": site})
}

// CreateSite registers a new site
func (ctl *Controller) CreateSite(c *gin.Context) {
	var input siteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := models.Site{
		Name:            input.Name,
		ParkingPrice:    input.ParkingPrice,
		ParkingLocation: input.ParkingLocation,
		DropOffLocation: input.DropOffLocation,
		LobbyLocation:   input.LobbyLocation,
	}
	if err := ctl.Directory.CreateSite(c.Request.Context(), &site); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"site": site})
}

// UpdateSite changes only the fields present in the body
func (ctl *Controller) UpdateSite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch directory.SitePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, err := ctl.Directory.UpdateSite(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.siteChanged(id)
	c.JSON(http.StatusOK, gin.H{"site": site})
}

func (ctl *Controller) DeleteSite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctl.Directory.DeleteSite(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	ctl.siteChanged(id)
	c.JSON(http.StatusOK, gin.H{"message": "Site deleted"})
}

// SitesGeoJSON renders the campus as a GeoJSON FeatureCollection
func (ctl *Controller) SitesGeoJSON(c *gin.Context) {
	markers, areas, err := ctl.Directory.GeoJSON(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := json.Marshal(geo.FeatureCollection(markers, areas))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// NearestSites ranks sites by distance from ?lat=&lng=
func (ctl *Controller) NearestSites(c *gin.Context) {
	p := queryPoint(c, "lat", "lng")
	if p == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	k := 3
	if v := c.Query("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be a positive integer"})
			return
		}
		k = min(n, maxNearest)
	}

	ranked, err := ctl.Directory.Nearest(c.Request.Context(), *p, k)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ranked})
}

func (ctl *Controller) siteChanged(id uint) {
	if ctl.Hub != nil {
		ctl.Hub.Publish(id)
	}
}
