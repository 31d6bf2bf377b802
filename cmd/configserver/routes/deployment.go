package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
)

// RegisterDeploymentRoutes registers publish, rollback and history routes
func RegisterDeploymentRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewDeploymentHandler(c.Components, c.DeploymentService)

	deployments := e.Group("/api/v1/deployments")
	{
		deployments.POST("", h.Publish)
		deployments.GET("", h.ListDeployments)
		deployments.GET("/:id", h.GetDeployment)
		deployments.POST("/:id/rollback", h.Rollback)
		deployments.GET("/:id/diff/:other", h.DiffDeployments)
	}
}
