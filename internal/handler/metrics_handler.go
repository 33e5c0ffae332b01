package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Julius266/proyecto-final/internal/service"
	"github.com/Julius266/proyecto-final/pkg/response"
)

// MetricsHandler exposes runtime metric snapshots.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Snapshot godoc
// @Summary Runtime metrics snapshot
// @Description Aggregated request and cache statistics
// @Tags System
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(), nil)
}
