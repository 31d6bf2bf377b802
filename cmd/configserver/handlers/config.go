package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/models"
)

// ConfigHandler handles config entry requests
type ConfigHandler struct {
	components *bootstrap.Components
	configs    *service.ConfigService
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(components *bootstrap.Components, configs *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{
		components: components,
		configs:    configs,
	}
}

type createConfigRequest struct {
	KeyName      string          `json:"key_name" validate:"required"`
	Description  string          `json:"description"`
	ValueType    string          `json:"value_type" validate:"required"`
	DefaultValue models.Value    `json:"default_value"`
	Schema       json.RawMessage `json:"schema,omitempty"`
	CreatedBy    string          `json:"created_by"`
}

// CreateConfig creates a new config entry
// POST /api/v1/configs
func (h *ConfigHandler) CreateConfig(c echo.Context) error {
	var req createConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry, err := h.configs.Create(c.Request().Context(), &service.CreateConfigRequest{
		KeyName:      req.KeyName,
		Description:  req.Description,
		ValueType:    models.ConfigValueType(req.ValueType),
		DefaultValue: req.DefaultValue,
		Schema:       req.Schema,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		h.components.Logger.Error("failed to create config", "config_key", req.KeyName, "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// GetConfig retrieves a config entry by id
// GET /api/v1/configs/:id
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	entry, err := h.configs.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// GetConfigByKey retrieves a config entry by key name
// GET /api/v1/configs/key/:key
func (h *ConfigHandler) GetConfigByKey(c echo.Context) error {
	entry, err := h.configs.GetByKey(c.Request().Context(), c.Param("key"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// ListConfigs lists config entries with optional filters
// GET /api/v1/configs?search=&value_type=&is_active=&page=&limit=
func (h *ConfigHandler) ListConfigs(c echo.Context) error {
	filter := service.ConfigFilter{
		Search:    c.QueryParam("search"),
		ValueType: models.ConfigValueType(c.QueryParam("value_type")),
		Page:      intQueryParam(c, "page", 1),
		Limit:     intQueryParam(c, "limit", 50),
	}
	if raw := c.QueryParam("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid is_active")
		}
		filter.IsActive = &active
	}

	entries, total, err := h.configs.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	if entries == nil {
		entries = []*models.ConfigEntry{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"configs": entries,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// UpdateConfig modifies a config entry's mutable attributes
// PUT /api/v1/configs/:id
func (h *ConfigHandler) UpdateConfig(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	var req service.UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, err := h.configs.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// DeleteConfig removes a config entry and its version history
// DELETE /api/v1/configs/:id
func (h *ConfigHandler) DeleteConfig(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid config id")
	}

	if err := h.configs.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
