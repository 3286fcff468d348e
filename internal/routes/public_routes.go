package routes

import (
	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/controllers"
)

func PublicRoutes(r *gin.Engine, ctl *controllers.Controller) {
	sites := r.Group("/sites")
	{
		sites.GET("", ctl.ListSites)
		sites.GET("/geojson", ctl.SitesGeoJSON)
		sites.GET("/nearest", ctl.NearestSites)
		sites.GET("/:id", ctl.GetSite)
		sites.GET("/:id/overlay", ctl.GetOverlay)
		sites.GET("/:id/overlay/image", ctl.OverlayImage)
		sites.GET("/:id/navigation", ctl.SiteNavigation)
	}

	r.GET("/services", ctl.ListServices)
	r.GET("/navigation/directions", ctl.Directions)
	r.GET("/places/autocomplete", ctl.Autocomplete)
}
