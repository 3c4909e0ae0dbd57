package handlers

import (
	"github.com/alimgiray/devpulse/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the read-only reporting routes
func NewRouter(reporter Reporter, status RefreshStatus) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	healthHandler := NewHealthHandler(status)
	developerHandler := NewDeveloperHandler(reporter)

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	{
		api.GET("/developers", developerHandler.ListDevelopers)
		api.GET("/tiers", developerHandler.Tiers)
	}

	router.NoRoute(NotFound)

	return router
}
