package routes

import (
	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/controllers"
	"campus_wayfinder/internal/directory"
)

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller) {
	admin := r.Group("/admin")
	admin.Use(ctl.Auth.RequireAuthWithRole(directory.RoleAdmin))
	{
		admin.POST("/sites", ctl.CreateSite)
		admin.PATCH("/sites/:id", ctl.UpdateSite)
		admin.DELETE("/sites/:id", ctl.DeleteSite)

		admin.GET("/services", ctl.AdminListServices)
		admin.POST("/services", ctl.CreateService)
		admin.POST("/services/preview", ctl.PreviewServices)
		admin.PATCH("/services/:id", ctl.UpdateService)
		admin.DELETE("/services/:id", ctl.DeleteService)

		admin.POST("/sites/:id/alignment", ctl.OpenAlignment)
	}

	alignment := admin.Group("/alignment/:sid")
	{
		alignment.GET("", ctl.GetAlignment)
		alignment.DELETE("", ctl.CloseAlignment)
		alignment.GET("/preview", ctl.PreviewAlignment)
		alignment.PUT("/image", ctl.UploadImage)
		alignment.DELETE("/image", ctl.RemoveImage)
		alignment.POST("/rotate", ctl.RotateImage)
		alignment.PUT("/bounds", ctl.SetBounds)
		alignment.POST("/bounds/default", ctl.DefaultBounds)
		alignment.PUT("/anchors/:anchor", ctl.MoveAnchor)
		alignment.POST("/commit", ctl.CommitAlignment)
		alignment.POST("/cancel", ctl.CancelAlignment)
	}
}
