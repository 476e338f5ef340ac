package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lendaworks/paybridge/internal/handlers"
)

// SetupC2BRoutes registers the provider callback endpoints. The supplied
// middleware (source auth, rate limiting) guards only the callback group;
// health stays open.
func SetupC2BRoutes(router *gin.Engine, h *handlers.C2BHandler, callbackMiddleware ...gin.HandlerFunc) {
	router.GET("/health", handlers.Health)

	c2b := router.Group("/api/v1/c2b")
	c2b.Use(callbackMiddleware...)
	{
		c2b.POST("/validation", h.Validation)
		c2b.POST("/confirmation", h.Confirmation)
	}
}
