package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
)

// RegisterResolveRoutes registers the client-facing resolution routes and the
// health endpoint
func RegisterResolveRoutes(e *echo.Echo, c *container.Container) {
	resolveHandler := handlers.NewResolveHandler(c.Components, c.Resolver)
	healthHandler := handlers.NewHealthHandler(c.Components)

	resolve := e.Group("/api/v1/resolve")
	{
		resolve.POST("", resolveHandler.Resolve)
		resolve.POST("/batch", resolveHandler.ResolveBatch)
	}

	e.GET("/healthz", healthHandler.Health)
}
