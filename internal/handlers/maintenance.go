package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

// MaintenanceHandler triggers retention sweeps outside the daily schedule.
type MaintenanceHandler struct {
	service *services.MaintenanceService
}

func NewMaintenanceHandler(db *gorm.DB, cfg *config.Config) *MaintenanceHandler {
	return &MaintenanceHandler{service: services.NewMaintenanceService(db, cfg)}
}

// Cleanup runs the full retention sweep now and reports what was removed.
// POST /api/maintenance/cleanup
func (h *MaintenanceHandler) Cleanup(c *gin.Context) {
	result := h.service.RunCleanup()
	response.Success(c, result)
}
