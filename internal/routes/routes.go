package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/controllers"
)

func SetupRouter(ctl *controllers.Controller) *gin.Engine {
	binding.EnableDecoderDisallowUnknownFields = true

	r := gin.New()
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(logrus.StandardLogger().Out),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/healthz"}),
	))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	AuthRoutes(r, ctl)
	PublicRoutes(r, ctl)
	AdminRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	return r
}
