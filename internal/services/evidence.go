package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

// EvidenceService captures a screenshot for every timestamped finding
// after the model reply has been parsed. Capture failures never fail the
// run; the issue is marked unavailable and the report says so.
type EvidenceService struct {
	cfg   *config.Config
	media *media.Executor
}

func NewEvidenceService(cfg *config.Config, exec *media.Executor) *EvidenceService {
	return &EvidenceService{cfg: cfg, media: exec}
}

// EvidenceName builds the screenshot filename for an issue. The name is a
// pure function of the video hash, issue position and recorded timestamp,
// so re-running the same review overwrites the same files.
func EvidenceName(contentHash string, position int, timestamp float64) string {
	hash := contentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return fmt.Sprintf("%s_issue%03d_%.2fs.jpg", hash, position, timestamp)
}

// seekTimestamp nudges a boundary timestamp back so the decoder lands on a
// real frame when the capture point sits at the very end of the stream.
// The recorded timestamp keeps the clamped value; only the seek moves.
func seekTimestamp(ts, duration float64) float64 {
	if ts >= duration {
		ts = duration - 0.1
	}
	if ts < 0 {
		ts = 0
	}
	return ts
}

// Capture fills EvidencePath, EvidenceStatus and the clamped Timestamp on
// each issue in place. Issues without a timestamp are marked none.
func (s *EvidenceService) Capture(ctx context.Context, asset *models.VideoAsset, issues []*models.ReviewIssue) error {
	captured := 0
	wanted := 0

	for _, issue := range issues {
		if ctx.Err() != nil {
			return NewAbortedError("evidence capture canceled")
		}
		if issue.Timestamp == nil {
			issue.EvidenceStatus = "none"
			continue
		}
		wanted++

		clamped := media.ClampTimestamp(*issue.Timestamp, asset.DurationSeconds)
		if clamped != *issue.Timestamp {
			logger.Warnf("[Evidence] Issue %d timestamp %.2fs outside video bounds, clamped to %.2fs",
				issue.Position, *issue.Timestamp, clamped)
			issue.Timestamp = &clamped
		}

		name := EvidenceName(asset.ContentHash, issue.Position, clamped)
		path := filepath.Join(s.cfg.Paths.Screenshots, name)

		if err := s.media.ExtractFrame(ctx, asset.SourcePath, path, seekTimestamp(clamped, asset.DurationSeconds)); err != nil {
			logger.Warnf("[Evidence] Screenshot failed for issue %d at %.2fs: %v", issue.Position, clamped, err)
			issue.EvidencePath = ""
			issue.EvidenceStatus = "unavailable"
			continue
		}

		issue.EvidencePath = path
		issue.EvidenceStatus = "captured"
		captured++
	}

	if wanted > 0 {
		logger.Infof("[Evidence] Captured %d/%d screenshots for %s", captured, wanted, asset.Filename)
	}
	return nil
}
