package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/response"
)

// VideoHandler covers the asset endpoints: multipart upload, local path
// intake, listing and deletion.
type VideoHandler struct {
	cfg    *config.Config
	assets *services.VideoAssetService
	intake *services.IntakeService
	review *services.ReviewService
	queue  services.TaskQueue
}

func NewVideoHandler(db *gorm.DB, cfg *config.Config, intake *services.IntakeService, review *services.ReviewService, queue services.TaskQueue) *VideoHandler {
	return &VideoHandler{
		cfg:    cfg,
		assets: services.NewVideoAssetService(db),
		intake: intake,
		review: review,
		queue:  queue,
	}
}

// Upload receives a video file, registers it and optionally queues a
// review. Duplicate content maps onto the existing asset.
// POST /api/videos
func (h *VideoHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field required")
		return
	}

	// Each upload gets its own directory so the original filename
	// survives without collisions.
	name := filepath.Base(file.Filename)
	dest := filepath.Join(h.cfg.Paths.Uploads, uuid.New().String(), name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		response.ServerError(c, "could not store upload: "+err.Error())
		return
	}

	asset, created, err := h.intake.Ingest(c.Request.Context(), dest, "upload", "")
	if err != nil {
		os.Remove(dest)
		response.Error(c, intakeError(err))
		return
	}
	if !created {
		// The content already exists under another path.
		os.RemoveAll(filepath.Dir(dest))
	}

	autoReview := c.DefaultPostForm("auto_review", "true") == "true"
	var run interface{}
	if autoReview {
		r, err := h.startReview(asset.ID, "upload")
		if err != nil {
			response.ServerError(c, "asset stored but review could not be queued: "+err.Error())
			return
		}
		run = r
	}

	body := gin.H{"asset": asset, "created": created, "run": run}
	if created {
		response.Created(c, body)
		return
	}
	response.Success(c, body)
}

type intakeRequest struct {
	Path       string `json:"path" binding:"required"`
	Source     string `json:"source" binding:"omitempty,oneof=upload watch manual"`
	SourceMeta string `json:"source_meta"`
	AutoReview *bool  `json:"auto_review"`
}

// Intake registers a file that already exists on local disk. This is the
// push boundary for the email collaborator and for scripted ingestion.
// POST /api/videos/intake
func (h *VideoHandler) Intake(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	asset, created, err := h.intake.Ingest(c.Request.Context(), req.Path, req.Source, req.SourceMeta)
	if err != nil {
		response.Error(c, intakeError(err))
		return
	}

	autoReview := req.AutoReview == nil || *req.AutoReview
	var run interface{}
	if autoReview {
		r, err := h.startReview(asset.ID, req.Source)
		if err != nil {
			response.ServerError(c, "asset stored but review could not be queued: "+err.Error())
			return
		}
		run = r
	}

	body := gin.H{"asset": asset, "created": created, "run": run}
	if created {
		response.Created(c, body)
		return
	}
	response.Success(c, body)
}

// List returns registered assets, newest first.
// GET /api/videos
func (h *VideoHandler) List(c *gin.Context) {
	var req services.AssetListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.assets.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.List(c, resp.Total, resp.Page, resp.PageSize, resp.Items)
}

// GetByID returns one asset.
// GET /api/videos/:id
func (h *VideoHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid asset id")
		return
	}

	asset, err := h.assets.GetByID(uint(id))
	if err != nil {
		response.NotFound(c, "asset not found")
		return
	}
	response.Success(c, asset)
}

// Delete removes an asset with its runs and artifacts.
// DELETE /api/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid asset id")
		return
	}

	if err := h.assets.Delete(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "asset not found")
			return
		}
		response.Error(c, response.NewConflict(err.Error()))
		return
	}
	response.Success(c, gin.H{"message": "asset deleted"})
}

func (h *VideoHandler) startReview(assetID uint, trigger string) (interface{}, error) {
	run, err := h.review.CreateRun(assetID)
	if err != nil {
		return nil, err
	}
	if err := h.queue.Enqueue(&services.ReviewTask{RunID: run.ID, AssetID: assetID, Trigger: trigger}); err != nil {
		return nil, err
	}
	return run, nil
}

// intakeError maps intake rejections onto client errors; anything else
// stays a server fault.
func intakeError(err error) error {
	switch {
	case errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrFileTooLarge):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrUnreadableVideo):
		return response.NewUnprocessable(err.Error())
	default:
		return err
	}
}
