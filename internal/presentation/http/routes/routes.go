// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/siteguard/widget-go/internal/application/container"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/presentation/http/handlers"
	"github.com/siteguard/widget-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container, limiter *middleware.SessionLimiter, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(origins))

	collectorHandlers := handlers.NewCollectorHandlers(container.CollectorService, limiter, container.Logger)
	sandboxHandlers := handlers.NewSandboxHandlers(container.CollectorService, container.LiveHub, container.Logger)

	r.GET("/health", sandboxHandlers.Health)

	api := r.Group("/api")
	{
		track := api.Group("/track")
		for _, kind := range []events.Kind{
			events.KindSession,
			events.KindPageView,
			events.KindPageUpdate,
			events.KindEvent,
			events.KindSessionEnd,
		} {
			track.POST("/"+string(kind), collectorHandlers.Track(kind))
		}

		api.GET("/consent/check", collectorHandlers.CheckConsent)
		api.POST("/consent/", collectorHandlers.RecordConsent)
		api.POST("/chat", collectorHandlers.Chat)
	}

	sandbox := r.Group("/sandbox")
	{
		sandbox.GET("/live", sandboxHandlers.Live)
		sandbox.GET("/sessions/:id", sandboxHandlers.GetSession)
		sandbox.GET("/stats", sandboxHandlers.GetStats)
	}

	return r
}
