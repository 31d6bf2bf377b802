package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/common/bootstrap"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	components *bootstrap.Components
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(components *bootstrap.Components) *HealthHandler {
	return &HealthHandler{components: components}
}

// Health reports dependency status and counters
// GET /healthz
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := http.StatusOK

	dbStatus := "ok"
	if h.components.DB != nil {
		if err := h.components.DB.Health(ctx); err != nil {
			dbStatus = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	redisStatus := "ok"
	if h.components.Redis != nil {
		if err := h.components.Redis.Health(ctx); err != nil {
			redisStatus = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	return c.JSON(status, map[string]any{
		"service": h.components.Config.Service.Name,
		"db":      dbStatus,
		"redis":   redisStatus,
		"stats":   h.components.Telemetry.Stats(),
	})
}
