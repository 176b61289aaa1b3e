package services

import (
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

type ReviewRunService struct {
	db *gorm.DB
}

func NewReviewRunService(db *gorm.DB) *ReviewRunService {
	return &ReviewRunService{db: db}
}

type RunListRequest struct {
	Page       int       `form:"page" binding:"omitempty,min=1"`
	PageSize   int       `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status     string    `form:"status"`
	Verdict    string    `form:"verdict"`
	AssetID    uint      `form:"asset_id"`
	StartDate  time.Time `form:"start_date"`
	EndDate    time.Time `form:"end_date"`
	SearchText string    `form:"search_text"`
	MinScore   *float64  `form:"min_score"`
	MaxScore   *float64  `form:"max_score"`
}

type RunListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.ReviewRun `json:"items"`
}

// List returns paginated review runs, newest first.
func (s *ReviewRunService) List(req *RunListRequest) (*RunListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	var runs []models.ReviewRun
	var total int64

	query := s.db.Model(&models.ReviewRun{}).Preload("VideoAsset")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Verdict != "" {
		query = query.Where("verdict = ?", req.Verdict)
	}
	if req.AssetID > 0 {
		query = query.Where("video_asset_id = ?", req.AssetID)
	}
	if !req.StartDate.IsZero() {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if !req.EndDate.IsZero() {
		query = query.Where("created_at <= ?", req.EndDate)
	}
	if req.SearchText != "" {
		query = query.Where("video_asset_id IN (?)",
			s.db.Model(&models.VideoAsset{}).Select("id").Where("filename LIKE ?", "%"+req.SearchText+"%"))
	}
	if req.MinScore != nil {
		query = query.Where("score >= ?", *req.MinScore)
	}
	if req.MaxScore != nil {
		query = query.Where("score <= ?", *req.MaxScore)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}

	return &RunListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    runs,
	}, nil
}

// GetByID returns a review run with its asset.
func (s *ReviewRunService) GetByID(id uint) (*models.ReviewRun, error) {
	var run models.ReviewRun
	if err := s.db.Preload("VideoAsset").First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByKey returns a review run by its public run key.
func (s *ReviewRunService) GetByKey(runKey string) (*models.ReviewRun, error) {
	var run models.ReviewRun
	if err := s.db.Preload("VideoAsset").Where("run_key = ?", runKey).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Issues returns the run's findings in reply order.
func (s *ReviewRunService) Issues(runID uint) ([]models.ReviewIssue, error) {
	var issues []models.ReviewIssue
	if err := s.db.Where("review_run_id = ?", runID).Order("position ASC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// Delete removes a run, its issues and its artifacts. Evidence frames and
// the report file are best-effort; a missing file is not an error.
func (s *ReviewRunService) Delete(id uint) error {
	run, err := s.GetByID(id)
	if err != nil {
		return err
	}

	issues, err := s.Issues(id)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.EvidencePath != "" {
			if err := os.Remove(issue.EvidencePath); err != nil && !os.IsNotExist(err) {
				logger.Warnf("[ReviewRun] Could not remove evidence %s: %v", issue.EvidencePath, err)
			}
		}
	}
	if run.ReportPath != "" {
		if err := os.Remove(run.ReportPath); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[ReviewRun] Could not remove report %s: %v", run.ReportPath, err)
		}
	}

	if err := s.db.Where("review_run_id = ?", id).Delete(&models.ReviewIssue{}).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.ReviewRun{}, id).Error
}

// Recent returns the latest runs for dashboard views.
func (s *ReviewRunService) Recent(limit int) ([]models.ReviewRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.ReviewRun
	err := s.db.Preload("VideoAsset").Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
