package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
)

// ResolveHandler serves the client-facing resolution endpoints
type ResolveHandler struct {
	components *bootstrap.Components
	resolver   *service.Resolver
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(components *bootstrap.Components, resolver *service.Resolver) *ResolveHandler {
	return &ResolveHandler{
		components: components,
		resolver:   resolver,
	}
}

type resolveRequest struct {
	ConfigKey string         `json:"config_key" validate:"required"`
	SubjectID string         `json:"subject_id" validate:"required"`
	Context   map[string]any `json:"context"`
}

// Resolve resolves one config key for a subject
// POST /api/v1/resolve
func (h *ResolveHandler) Resolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resolution, err := h.resolver.Resolve(c.Request().Context(), req.ConfigKey, req.Context, req.SubjectID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resolution)
}

type resolveBatchRequest struct {
	ConfigKeys []string       `json:"config_keys" validate:"required,min=1"`
	SubjectID  string         `json:"subject_id" validate:"required"`
	Context    map[string]any `json:"context"`
}

// ResolveBatch resolves several config keys for the same subject
// POST /api/v1/resolve/batch
func (h *ResolveHandler) ResolveBatch(c echo.Context) error {
	var req resolveBatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resolutions, err := h.resolver.ResolveBatch(c.Request().Context(), req.ConfigKeys, req.Context, req.SubjectID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"resolutions": resolutions})
}
