package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
)

type VideoAssetService struct {
	db   *gorm.DB
	runs *ReviewRunService
}

func NewVideoAssetService(db *gorm.DB) *VideoAssetService {
	return &VideoAssetService{db: db, runs: NewReviewRunService(db)}
}

type AssetListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Source   string `form:"source"`
	Search   string `form:"search"`
}

type AssetListResponse struct {
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Items    []models.VideoAsset `json:"items"`
}

// List returns paginated assets, newest first.
func (s *VideoAssetService) List(req *AssetListRequest) (*AssetListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	var assets []models.VideoAsset
	var total int64

	query := s.db.Model(&models.VideoAsset{})

	if req.Source != "" {
		query = query.Where("source = ?", req.Source)
	}
	if req.Search != "" {
		query = query.Where("filename LIKE ?", "%"+req.Search+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&assets).Error; err != nil {
		return nil, err
	}

	return &AssetListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    assets,
	}, nil
}

// GetByID returns an asset by ID.
func (s *VideoAssetService) GetByID(id uint) (*models.VideoAsset, error) {
	var asset models.VideoAsset
	if err := s.db.First(&asset, id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetByHash returns an asset by its content hash.
func (s *VideoAssetService) GetByHash(hash string) (*models.VideoAsset, error) {
	var asset models.VideoAsset
	if err := s.db.Where("content_hash = ?", hash).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// Delete removes an asset together with its runs and their artifacts. An
// asset with a run still executing cannot be deleted.
func (s *VideoAssetService) Delete(id uint) error {
	var running int64
	s.db.Model(&models.ReviewRun{}).
		Where("video_asset_id = ? AND status = ?", id, RunStatusRunning).
		Count(&running)
	if running > 0 {
		return fmt.Errorf("asset %d has a review in progress", id)
	}

	var runs []models.ReviewRun
	if err := s.db.Where("video_asset_id = ?", id).Find(&runs).Error; err != nil {
		return err
	}
	for _, run := range runs {
		if err := s.runs.Delete(run.ID); err != nil {
			return err
		}
	}

	result := s.db.Delete(&models.VideoAsset{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("asset not found")
	}
	return nil
}
