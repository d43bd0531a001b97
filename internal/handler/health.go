package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-backoffice/internal/repository"
)

// HealthHandler reports liveness together with the storage mode so
// operators can see when requests are served from the mirror.
type HealthHandler struct {
	Store *repository.Health
}

func NewHealthHandler(h *repository.Health) *HealthHandler { return &HealthHandler{Store: h} }

// Health always answers 200 while the process is up; fallback mode is a
// degraded but serving state.
func (h *HealthHandler) Health(c echo.Context) error {
	snap := h.Store.Snapshot()
	status := "ok"
	if snap.Mode == repository.ModeFallback && snap.DurableConfigured {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": status,
		"store":  snap,
	})
}
