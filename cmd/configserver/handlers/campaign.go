package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/models"
)

// CampaignHandler handles campaign, override and variant requests
type CampaignHandler struct {
	components *bootstrap.Components
	campaigns  *service.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(components *bootstrap.Components, campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		components: components,
		campaigns:  campaigns,
	}
}

// CreateCampaign creates a new campaign in draft status
// POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(c echo.Context) error {
	var req service.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	campaign, err := h.campaigns.Create(c.Request().Context(), &req)
	if err != nil {
		h.components.Logger.Error("failed to create campaign", "campaign_name", req.CampaignName, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, campaign)
}

// GetCampaign retrieves a campaign with overrides and variants
// GET /api/v1/campaigns/:id
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	campaign, err := h.campaigns.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

// ListCampaigns lists campaigns by priority
// GET /api/v1/campaigns?page=&limit=
func (h *CampaignHandler) ListCampaigns(c echo.Context) error {
	page := intQueryParam(c, "page", 1)
	limit := intQueryParam(c, "limit", 20)

	campaigns, total, err := h.campaigns.List(c.Request().Context(), page, limit)
	if err != nil {
		return httpError(err)
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"campaigns": campaigns,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// UpdateCampaign modifies a campaign
// PUT /api/v1/campaigns/:id
func (h *CampaignHandler) UpdateCampaign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	var req service.UpdateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	campaign, err := h.campaigns.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// TransitionCampaign moves a campaign along its lifecycle
// POST /api/v1/campaigns/:id/transition
func (h *CampaignHandler) TransitionCampaign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	campaign, err := h.campaigns.Transition(c.Request().Context(), id, models.CampaignStatus(req.Status))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign removes a campaign with its overrides and variants
// DELETE /api/v1/campaigns/:id
func (h *CampaignHandler) DeleteCampaign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	if err := h.campaigns.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type setOverrideRequest struct {
	ConfigID uuid.UUID    `json:"config_id" validate:"required"`
	Value    models.Value `json:"value"`
}

// SetOverride attaches or replaces a campaign's override for a config
// PUT /api/v1/campaigns/:id/overrides
func (h *CampaignHandler) SetOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	var req setOverrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	override, err := h.campaigns.SetOverride(c.Request().Context(), id, req.ConfigID, req.Value)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, override)
}

// RemoveOverride detaches a campaign's override for a config
// DELETE /api/v1/campaigns/:id/overrides/:configID
func (h *CampaignHandler) RemoveOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	configID, err := uuid.Parse(c.Param("configID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	if err := h.campaigns.RemoveOverride(c.Request().Context(), id, configID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetVariant attaches or replaces an A/B variant on a campaign
// PUT /api/v1/campaigns/:id/variants
func (h *CampaignHandler) SetVariant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}

	var req service.SetVariantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	variant, err := h.campaigns.SetVariant(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, variant)
}

// RemoveVariant detaches a variant from its campaign
// DELETE /api/v1/campaigns/:id/variants/:variantID
func (h *CampaignHandler) RemoveVariant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	variantID, err := uuid.Parse(c.Param("variantID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid variant id")
	}

	if err := h.campaigns.RemoveVariant(c.Request().Context(), id, variantID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
