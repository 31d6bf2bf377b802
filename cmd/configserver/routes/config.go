package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
)

// RegisterConfigRoutes registers config entry and version lifecycle routes
func RegisterConfigRoutes(e *echo.Echo, c *container.Container) {
	configHandler := handlers.NewConfigHandler(c.Components, c.ConfigService)
	versionHandler := handlers.NewVersionHandler(c.Components, c.VersionService)

	configs := e.Group("/api/v1/configs")
	{
		configs.POST("", configHandler.CreateConfig)
		configs.GET("", configHandler.ListConfigs)
		configs.GET("/key/:key", configHandler.GetConfigByKey)
		configs.GET("/:id", configHandler.GetConfig)
		configs.PUT("/:id", configHandler.UpdateConfig)
		configs.DELETE("/:id", configHandler.DeleteConfig)

		configs.POST("/:id/versions", versionHandler.CreateDraft)
		configs.GET("/:id/versions", versionHandler.ListVersions)
		configs.POST("/:id/unstage", versionHandler.Unstage)
		configs.DELETE("/:id/draft", versionHandler.DiscardDraft)
		configs.GET("/:id/value", versionHandler.GetPublishedValue)
	}

	versions := e.Group("/api/v1/versions")
	{
		versions.POST("/stage", versionHandler.Stage)
	}
}
