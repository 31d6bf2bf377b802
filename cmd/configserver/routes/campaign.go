package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
)

// RegisterCampaignRoutes registers campaign, override and variant routes
func RegisterCampaignRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewCampaignHandler(c.Components, c.CampaignService)

	campaigns := e.Group("/api/v1/campaigns")
	{
		campaigns.POST("", h.CreateCampaign)
		campaigns.GET("", h.ListCampaigns)
		campaigns.GET("/:id", h.GetCampaign)
		campaigns.PUT("/:id", h.UpdateCampaign)
		campaigns.DELETE("/:id", h.DeleteCampaign)
		campaigns.POST("/:id/transition", h.TransitionCampaign)

		campaigns.PUT("/:id/overrides", h.SetOverride)
		campaigns.DELETE("/:id/overrides/:configID", h.RemoveOverride)
		campaigns.PUT("/:id/variants", h.SetVariant)
		campaigns.DELETE("/:id/variants/:variantID", h.RemoveVariant)
	}
}
