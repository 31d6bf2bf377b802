package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
)

// RegisterContextRoutes registers context field catalog and rule-testing routes
func RegisterContextRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewContextHandler(c.Components, c.CatalogService)

	context := e.Group("/api/v1/context")
	{
		context.POST("/fields", h.CreateField)
		context.GET("/fields", h.ListFields)
		context.GET("/fields/:id", h.GetField)
		context.PUT("/fields/:id", h.UpdateField)
		context.DELETE("/fields/:id", h.DeleteField)
		context.GET("/fields/:id/operators", h.ListFieldOperators)

		context.GET("/operators", h.ListOperators)
		context.POST("/conditions/validate", h.ValidateConditions)
		context.POST("/conditions/test", h.TestConditions)
	}
}
