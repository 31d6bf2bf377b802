package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/models"
)

// VersionHandler handles config version lifecycle requests
type VersionHandler struct {
	components *bootstrap.Components
	versions   *service.VersionService
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(components *bootstrap.Components, versions *service.VersionService) *VersionHandler {
	return &VersionHandler{
		components: components,
		versions:   versions,
	}
}

type createDraftRequest struct {
	Value     models.Value `json:"value"`
	CreatedBy string       `json:"created_by"`
}

// CreateDraft creates (or supersedes) a config's draft version
// POST /api/v1/configs/:id/versions
func (h *VersionHandler) CreateDraft(c echo.Context) error {
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	var req createDraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	version, err := h.versions.CreateDraft(c.Request().Context(), configID, req.Value, req.CreatedBy)
	if err != nil {
		h.components.Logger.Error("failed to create draft", "config_id", configID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, version)
}

// ListVersions lists a config's version history
// GET /api/v1/configs/:id/versions
func (h *VersionHandler) ListVersions(c echo.Context) error {
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	versions, err := h.versions.ListVersions(c.Request().Context(), configID)
	if err != nil {
		return httpError(err)
	}
	if versions == nil {
		versions = []*models.ConfigVersion{}
	}
	return c.JSON(http.StatusOK, map[string]any{"versions": versions})
}

type stageRequest struct {
	ConfigIDs   []uuid.UUID `json:"config_ids" validate:"required,min=1"`
	Description string      `json:"description"`
	StagedBy    string      `json:"staged_by"`
}

// Stage stages the drafts of the given configs as one all-or-nothing batch
// POST /api/v1/versions/stage
func (h *VersionHandler) Stage(c echo.Context) error {
	var req stageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	staged, err := h.versions.Stage(c.Request().Context(), req.ConfigIDs, req.Description, req.StagedBy)
	if err != nil {
		h.components.Logger.Error("failed to stage configs", "count", len(req.ConfigIDs), "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"staged": staged})
}

// Unstage withdraws a config's staged candidate back to draft
// POST /api/v1/configs/:id/unstage
func (h *VersionHandler) Unstage(c echo.Context) error {
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	version, err := h.versions.Unstage(c.Request().Context(), configID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, version)
}

// DiscardDraft deletes a config's draft version
// DELETE /api/v1/configs/:id/draft
func (h *VersionHandler) DiscardDraft(c echo.Context) error {
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	if err := h.versions.DiscardDraft(c.Request().Context(), configID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPublishedValue returns the currently published (or default) value
// GET /api/v1/configs/:id/value
func (h *VersionHandler) GetPublishedValue(c echo.Context) error {
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	value, err := h.versions.PublishedValue(c.Request().Context(), configID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"value": value})
}
