package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/models"
)

// DeploymentHandler handles publish, rollback and deployment history requests
type DeploymentHandler struct {
	components  *bootstrap.Components
	deployments *service.DeploymentService
}

// NewDeploymentHandler creates a new deployment handler
func NewDeploymentHandler(components *bootstrap.Components, deployments *service.DeploymentService) *DeploymentHandler {
	return &DeploymentHandler{
		components:  components,
		deployments: deployments,
	}
}

type publishRequest struct {
	DeploymentName string `json:"deployment_name" validate:"required"`
	Description    string `json:"description"`
	DeployedBy     string `json:"deployed_by"`
}

// Publish publishes all staged versions atomically under a named deployment
// POST /api/v1/deployments
func (h *DeploymentHandler) Publish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	deployment, err := h.deployments.Publish(c.Request().Context(), req.DeploymentName, req.Description, req.DeployedBy)
	if err != nil {
		h.components.Logger.Error("publish failed", "deployment_name", req.DeploymentName, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, deployment)
}

type rollbackRequest struct {
	DeployedBy string `json:"deployed_by"`
}

// Rollback restores a prior deployment's snapshot as a new deployment
// POST /api/v1/deployments/:id/rollback
func (h *DeploymentHandler) Rollback(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid deployment id")
	}

	var req rollbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	deployment, err := h.deployments.Rollback(c.Request().Context(), id, req.DeployedBy)
	if err != nil {
		h.components.Logger.Error("rollback failed", "deployment_id", id, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, deployment)
}

// GetDeployment retrieves a deployment with its snapshot
// GET /api/v1/deployments/:id
func (h *DeploymentHandler) GetDeployment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid deployment id")
	}

	deployment, err := h.deployments.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, deployment)
}

// ListDeployments lists deployments newest first
// GET /api/v1/deployments?page=&limit=
func (h *DeploymentHandler) ListDeployments(c echo.Context) error {
	page := intQueryParam(c, "page", 1)
	limit := intQueryParam(c, "limit", 20)

	deployments, total, err := h.deployments.List(c.Request().Context(), page, limit)
	if err != nil {
		return httpError(err)
	}
	if deployments == nil {
		deployments = []*models.Deployment{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"deployments": deployments,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}

// DiffDeployments returns a JSON merge patch between two deployments' snapshots
// GET /api/v1/deployments/:id/diff/:other
func (h *DeploymentHandler) DiffDeployments(c echo.Context) error {
	aID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid deployment id")
	}
	bID, err := uuid.Parse(c.Param("other"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid deployment id")
	}

	patch, err := h.deployments.Diff(c.Request().Context(), aID, bID)
	if err != nil {
		return httpError(err)
	}
	return c.JSONBlob(http.StatusOK, patch)
}
