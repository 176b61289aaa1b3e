package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

// AIUsageHandler provides endpoints for AI usage statistics.
type AIUsageHandler struct {
	usageService *services.AIUsageService
}

func NewAIUsageHandler(db *gorm.DB) *AIUsageHandler {
	return &AIUsageHandler{
		usageService: services.NewAIUsageService(db),
	}
}

// GetStats returns aggregated AI usage statistics.
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	var runID *uint
	if ridStr := c.Query("run_id"); ridStr != "" {
		if rid, err := strconv.ParseUint(ridStr, 10, 32); err == nil {
			r := uint(rid)
			runID = &r
		}
	}

	stats, err := h.usageService.GetStats(startDate, endDate, runID)
	if err != nil {
		response.ServerError(c, "failed to get AI usage stats: "+err.Error())
		return
	}

	response.Success(c, stats)
}

// GetDailyTrend returns daily AI usage data for charting.
func (h *AIUsageHandler) GetDailyTrend(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	var runID *uint
	if ridStr := c.Query("run_id"); ridStr != "" {
		if rid, err := strconv.ParseUint(ridStr, 10, 32); err == nil {
			r := uint(rid)
			runID = &r
		}
	}

	trend, err := h.usageService.GetDailyTrend(startDate, endDate, runID)
	if err != nil {
		response.ServerError(c, "failed to get AI usage trend: "+err.Error())
		return
	}

	response.Success(c, trend)
}

// GetProviderBreakdown returns AI usage grouped by provider/model.
func (h *AIUsageHandler) GetProviderBreakdown(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	providers, err := h.usageService.GetProviderBreakdown(startDate, endDate)
	if err != nil {
		response.ServerError(c, "failed to get provider breakdown: "+err.Error())
		return
	}

	response.Success(c, providers)
}
