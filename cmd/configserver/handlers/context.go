package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/models"
)

// ContextHandler handles context field catalog and targeting rule requests
type ContextHandler struct {
	components *bootstrap.Components
	catalog    *service.CatalogService
}

// NewContextHandler creates a new context handler
func NewContextHandler(components *bootstrap.Components, catalog *service.CatalogService) *ContextHandler {
	return &ContextHandler{
		components: components,
		catalog:    catalog,
	}
}

// CreateField registers a new context field
// POST /api/v1/context/fields
func (h *ContextHandler) CreateField(c echo.Context) error {
	var req service.CreateFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	field, err := h.catalog.CreateField(c.Request().Context(), &req)
	if err != nil {
		h.components.Logger.Error("failed to create context field", "field_key", req.Key, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, field)
}

// GetField retrieves a context field by id
// GET /api/v1/context/fields/:id
func (h *ContextHandler) GetField(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid field id")
	}

	field, err := h.catalog.GetField(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, field)
}

// ListFields lists all context field definitions
// GET /api/v1/context/fields
func (h *ContextHandler) ListFields(c echo.Context) error {
	fields, err := h.catalog.ListFields(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if fields == nil {
		fields = []*models.ContextFieldDefinition{}
	}
	return c.JSON(http.StatusOK, map[string]any{"fields": fields})
}

// UpdateField modifies a context field definition
// PUT /api/v1/context/fields/:id
func (h *ContextHandler) UpdateField(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid field id")
	}

	var req service.UpdateFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	field, err := h.catalog.UpdateField(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, field)
}

// DeleteField removes a context field unless a campaign references it
// DELETE /api/v1/context/fields/:id
func (h *ContextHandler) DeleteField(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid field id")
	}

	if err := h.catalog.DeleteField(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOperators returns the fixed operator catalog
// GET /api/v1/context/operators
func (h *ContextHandler) ListOperators(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"operators": h.catalog.Operators()})
}

// ListFieldOperators returns the operators usable with one field
// GET /api/v1/context/fields/:id/operators
func (h *ContextHandler) ListFieldOperators(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid field id")
	}

	operators, err := h.catalog.OperatorsForField(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if operators == nil {
		operators = []models.ContextOperator{}
	}
	return c.JSON(http.StatusOK, map[string]any{"operators": operators})
}

type validateConditionsRequest struct {
	Conditions []models.TargetCondition `json:"conditions"`
}

// ValidateConditions checks a condition list against the catalog
// POST /api/v1/context/conditions/validate
func (h *ContextHandler) ValidateConditions(c echo.Context) error {
	var req validateConditionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.catalog.ValidateConditions(c.Request().Context(), req.Conditions); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true})
}

type testConditionsRequest struct {
	Conditions []models.TargetCondition `json:"conditions"`
	Context    map[string]any           `json:"context"`
}

// TestConditions evaluates a condition list against a sample context
// POST /api/v1/context/conditions/test
func (h *ContextHandler) TestConditions(c echo.Context) error {
	var req testConditionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	matched, trace, err := h.catalog.TestConditions(c.Request().Context(), req.Conditions, req.Context)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"matched": matched, "conditions": trace})
}
