package routes

import (
	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/navigation/:id", ctl.NavigationSocket)
	}
}
