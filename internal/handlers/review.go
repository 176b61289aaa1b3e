package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

// ReviewHandler covers the run lifecycle: start, batch start, list,
// inspect, abort, retry, delete and report retrieval.
type ReviewHandler struct {
	runs   *services.ReviewRunService
	review *services.ReviewService
	retry  *services.RetryService
	queue  services.TaskQueue
}

func NewReviewHandler(db *gorm.DB, review *services.ReviewService, queue services.TaskQueue) *ReviewHandler {
	return &ReviewHandler{
		runs:   services.NewReviewRunService(db),
		review: review,
		retry:  services.NewRetryService(db, review),
		queue:  queue,
	}
}

type startReviewRequest struct {
	VideoAssetID uint `json:"video_asset_id" binding:"required"`
}

// Start queues a review run for one asset.
// POST /api/reviews
func (h *ReviewHandler) Start(c *gin.Context) {
	var req startReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	run, err := h.review.CreateRun(req.VideoAssetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "video asset not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	if err := h.queue.Enqueue(&services.ReviewTask{RunID: run.ID, AssetID: req.VideoAssetID, Trigger: "manual"}); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Accepted(c, run)
}

type batchReviewRequest struct {
	VideoAssetIDs []uint `json:"video_asset_ids" binding:"required,min=1,max=50"`
}

type batchItemResult struct {
	VideoAssetID uint   `json:"video_asset_id"`
	RunID        uint   `json:"run_id,omitempty"`
	RunKey       string `json:"run_key,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StartBatch queues runs for several assets. One bad asset never stops
// the rest of the batch.
// POST /api/reviews/batch
func (h *ReviewHandler) StartBatch(c *gin.Context) {
	var req batchReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	results := make([]batchItemResult, 0, len(req.VideoAssetIDs))
	queued := 0
	for _, assetID := range req.VideoAssetIDs {
		item := batchItemResult{VideoAssetID: assetID}

		run, err := h.review.CreateRun(assetID)
		if err == nil {
			err = h.queue.Enqueue(&services.ReviewTask{RunID: run.ID, AssetID: assetID, Trigger: "manual"})
		}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.RunID = run.ID
			item.RunKey = run.RunKey
			queued++
		}
		results = append(results, item)
	}

	response.Accepted(c, gin.H{"queued": queued, "results": results})
}

// List returns runs filtered by status, verdict, asset, date and score.
// GET /api/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	var req services.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.runs.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.List(c, resp.Total, resp.Page, resp.PageSize, resp.Items)
}

// GetByID returns one run with its issues.
// GET /api/reviews/:id
func (h *ReviewHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(uint(id))
	if err != nil {
		response.NotFound(c, "review run not found")
		return
	}
	issues, err := h.runs.Issues(run.ID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"run": run, "issues": issues})
}

// Abort cancels a pending or running run.
// POST /api/reviews/:id/abort
func (h *ReviewHandler) Abort(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	if err := h.review.Abort(uint(id)); err != nil {
		response.Error(c, response.NewConflict(err.Error()))
		return
	}
	response.Success(c, gin.H{"message": "abort requested"})
}

// Retry re-runs a failed run on operator request.
// POST /api/reviews/:id/retry
func (h *ReviewHandler) Retry(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	run, err := h.retry.ManualRetry(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "review run not found")
			return
		}
		response.Error(c, response.NewConflict(err.Error()))
		return
	}

	if err := h.queue.Enqueue(&services.ReviewTask{RunID: run.ID, AssetID: run.VideoAssetID, Trigger: "retry"}); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Accepted(c, gin.H{"message": "retry queued", "run_id": run.ID})
}

// Delete removes a run with its issues and artifacts.
// DELETE /api/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	if err := h.runs.Delete(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "review run not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "review run deleted"})
}

// GetReport serves the rendered report artifact.
// GET /api/reviews/:id/report
func (h *ReviewHandler) GetReport(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(uint(id))
	if err != nil {
		response.NotFound(c, "review run not found")
		return
	}
	if run.ReportPath == "" {
		response.NotFound(c, "no report for this run; regenerate if the run is completed")
		return
	}
	if _, err := os.Stat(run.ReportPath); err != nil {
		response.NotFound(c, "report file missing; regenerate to rebuild it")
		return
	}

	contentType := "text/html; charset=utf-8"
	if strings.EqualFold(filepath.Ext(run.ReportPath), ".md") {
		contentType = "text/markdown; charset=utf-8"
	}
	c.Header("Content-Type", contentType)
	c.File(run.ReportPath)
}

// RegenerateReport re-renders the artifact for a completed run. The
// output is byte-identical to the original render.
// POST /api/reviews/:id/report/regenerate
func (h *ReviewHandler) RegenerateReport(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	path, err := h.review.RegenerateReport(uint(id))
	if err != nil {
		response.Error(c, response.NewConflict(err.Error()))
		return
	}
	response.Success(c, gin.H{"report_path": path})
}
