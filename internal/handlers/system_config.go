package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/services"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
	digestService *services.DailyDigestService
	holidays      *services.HolidayService
}

func NewSystemConfigHandler(db *gorm.DB, digest *services.DailyDigestService) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
		digestService: digest,
		holidays:      services.NewHolidayService(),
	}
}

func (h *SystemConfigHandler) GetLDAPConfig(c *gin.Context) {
	config := h.configService.GetLDAPConfig()
	c.JSON(http.StatusOK, config)
}

func (h *SystemConfigHandler) UpdateLDAPConfig(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetLDAPConfig())
}

func (h *SystemConfigHandler) GetDigestConfig(c *gin.Context) {
	config := h.configService.GetDigestConfig()
	c.JSON(http.StatusOK, config)
}

func (h *SystemConfigHandler) UpdateDigestConfig(c *gin.Context) {
	var req services.UpdateDigestConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateDigestConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Re-register the cron entry so a changed time takes effect without
	// a restart.
	if h.digestService != nil {
		h.digestService.UpdateSchedule()
	}

	c.JSON(http.StatusOK, h.configService.GetDigestConfig())
}

func (h *SystemConfigHandler) GetRetentionConfig(c *gin.Context) {
	config := h.configService.GetRetentionConfig()
	c.JSON(http.StatusOK, config)
}

func (h *SystemConfigHandler) UpdateRetentionConfig(c *gin.Context) {
	var req services.UpdateRetentionConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateRetentionConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetRetentionConfig())
}

func (h *SystemConfigHandler) GetEmailConfig(c *gin.Context) {
	config := h.configService.GetEmailConfig()
	c.JSON(http.StatusOK, config)
}

func (h *SystemConfigHandler) UpdateEmailConfig(c *gin.Context) {
	var req services.UpdateEmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateEmailConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetEmailConfig())
}

// GetHolidayCountries lists country codes accepted by the digest
// holiday-skip setting.
func (h *SystemConfigHandler) GetHolidayCountries(c *gin.Context) {
	c.JSON(http.StatusOK, h.holidays.GetSupportedCountries())
}
