package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

// Intake rejection reasons, matchable with errors.Is so handlers can map
// them to client errors instead of server faults.
var (
	ErrUnsupportedFormat = errors.New("unsupported video format")
	ErrFileTooLarge      = errors.New("video file exceeds size limit")
	ErrUnreadableVideo   = errors.New("video file cannot be read")
)

// IntakeService validates incoming files and registers them as video
// assets. The same file content always maps to the same asset row, no
// matter how often or through which channel it arrives.
type IntakeService struct {
	db    *gorm.DB
	cfg   *config.Config
	media *media.Executor
}

func NewIntakeService(db *gorm.DB, cfg *config.Config, exec *media.Executor) *IntakeService {
	return &IntakeService{db: db, cfg: cfg, media: exec}
}

// ComputeFileHash returns the SHA-256 hex digest of the file contents.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ValidateFile rejects files the pipeline cannot process: unsupported
// extensions and oversized files.
func (s *IntakeService) ValidateFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, f := range s.cfg.Video.SupportedFormats {
		if strings.EqualFold(f, ext) {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableVideo, err)
	}
	if s.cfg.Video.MaxSizeMB > 0 && info.Size() > int64(s.cfg.Video.MaxSizeMB)*1024*1024 {
		return fmt.Errorf("%w: %d MB (limit %d MB)", ErrFileTooLarge, info.Size()/(1024*1024), s.cfg.Video.MaxSizeMB)
	}
	return nil
}

// Ingest validates, hashes and probes a video file, creating the asset row
// or returning the existing one when the content was seen before. The
// second return value is true when a new asset was created.
func (s *IntakeService) Ingest(ctx context.Context, path, source, sourceMeta string) (*models.VideoAsset, bool, error) {
	if err := s.ValidateFile(path); err != nil {
		return nil, false, err
	}

	hash, err := ComputeFileHash(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadableVideo, err)
	}

	var existing models.VideoAsset
	if err := s.db.Where("content_hash = ?", hash).First(&existing).Error; err == nil {
		logger.Infof("[Intake] Duplicate content %s..., reusing asset %d (%s)",
			hash[:8], existing.ID, existing.Filename)
		return &existing, false, nil
	}

	info, err := s.media.Probe(ctx, path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadableVideo, err)
	}
	if info.Duration <= 0 {
		return nil, false, fmt.Errorf("%w: video has no duration", ErrUnreadableVideo)
	}

	asset := &models.VideoAsset{
		SourcePath:      path,
		Filename:        filepath.Base(path),
		ContentHash:     hash,
		SizeBytes:       info.SizeBytes,
		DurationSeconds: info.Duration,
		Width:           info.Width,
		Height:          info.Height,
		FrameRate:       info.FrameRate,
		Codec:           info.VideoCodec,
		Source:          source,
		SourceMeta:      sourceMeta,
	}
	if err := s.db.Create(asset).Error; err != nil {
		return nil, false, err
	}

	logger.Infof("[Intake] Registered %s: %.1fs %dx%d %s, hash %s...",
		asset.Filename, info.Duration, info.Width, info.Height, info.VideoCodec, hash[:8])
	return asset, true, nil
}

// FindCompletedRun returns the most recent completed run for an asset, used
// to skip re-reviewing content that already has a verdict.
func (s *IntakeService) FindCompletedRun(assetID uint) *models.ReviewRun {
	var run models.ReviewRun
	err := s.db.Where("video_asset_id = ? AND status = ?", assetID, "completed").
		Order("created_at DESC").First(&run).Error
	if err != nil {
		return nil
	}
	return &run
}
