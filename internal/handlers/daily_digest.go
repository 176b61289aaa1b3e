package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

type DailyDigestHandler struct {
	service *services.DailyDigestService
}

func NewDailyDigestHandler(service *services.DailyDigestService) *DailyDigestHandler {
	return &DailyDigestHandler{service: service}
}

func (h *DailyDigestHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	digests, total, err := h.service.List(page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"items":     digests,
	})
}

func (h *DailyDigestHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	digest, err := h.service.GetByID(uint(id))
	if err != nil {
		response.NotFound(c, "digest not found")
		return
	}

	response.Success(c, digest)
}

// Generate builds today's digest on demand, outside the scheduled run.
func (h *DailyDigestHandler) Generate(c *gin.Context) {
	digest, err := h.service.GenerateDigest()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, digest)
}

func (h *DailyDigestHandler) Resend(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	if err := h.service.ResendNotification(uint(id)); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "notification resent"})
}
