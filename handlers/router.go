package handlers

import (
	"github.com/gin-gonic/gin"

	"chorus/groupware/middleware"
	"chorus/groupware/utils"
)

// RouterConfig holds what NewRouter needs to wire routes.
type RouterConfig struct {
	JWTSecret string
	Search    *SearchHandler
	Status    *StatusHandler
	Logger    *utils.Logger
}

// NewRouter builds the gin engine with all API routes.
func NewRouter(rc RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(rc.Logger))
	router.Use(middleware.CORS())

	// Health check endpoint
	router.GET("/health", HealthCheck)

	auth := middleware.Auth(rc.JWTSecret)

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		v1.GET("/search/comments", rc.Search.SearchComments)

		status := v1.Group("/status")
		{
			status.GET("", rc.Status.GetStatus)
			status.POST("/heartbeat", rc.Status.Heartbeat)
			status.PUT("/type", rc.Status.SetStatus)
			status.PUT("/message", rc.Status.SetMessage)
			status.DELETE("/message", rc.Status.ClearMessage)
			status.GET("/online", rc.Status.OnlineUsers)
		}
	}

	router.GET("/ws/status", auth, rc.Status.StreamStatus)

	return router
}
