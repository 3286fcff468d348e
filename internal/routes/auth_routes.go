package routes

import (
	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", ctl.Login)
	}
}
