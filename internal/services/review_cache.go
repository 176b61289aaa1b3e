package services

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

// ReviewCacheService reuses AI findings across runs of the same content
// under the same rules. A hit skips the provider call; evidence capture
// and report rendering still run fresh for the new run.
type ReviewCacheService struct {
	db *gorm.DB
}

func NewReviewCacheService(db *gorm.DB) *ReviewCacheService {
	return &ReviewCacheService{db: db}
}

// ComputeRuleFingerprint hashes everything that shapes the AI's answer:
// the rendered instruction document, its version, and the provider/model
// pair. Any rule edit, prompt bump or provider switch misses the cache.
func ComputeRuleFingerprint(spec *PromptSpec, provider, model string) string {
	var b strings.Builder
	b.WriteString(spec.Version)
	b.WriteString("\x00")
	b.WriteString(spec.Document)
	b.WriteString("\x00")
	b.WriteString(provider)
	b.WriteString("\x00")
	b.WriteString(model)
	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", h)
}

// FindCachedOutcome looks for a completed run of the same asset with the
// same rule fingerprint and returns its findings as a ready outcome.
func (s *ReviewCacheService) FindCachedOutcome(assetID uint, fingerprint string) *AIReviewOutcome {
	if fingerprint == "" {
		return nil
	}

	var existing models.ReviewRun
	err := s.db.Where(
		"video_asset_id = ? AND rule_fingerprint = ? AND status = ?",
		assetID, fingerprint, RunStatusCompleted,
	).Order("created_at DESC").First(&existing).Error
	if err != nil {
		return nil
	}

	var issues []models.ReviewIssue
	if err := s.db.Where("review_run_id = ?", existing.ID).Order("position ASC").Find(&issues).Error; err != nil {
		return nil
	}

	outcome := &AIReviewOutcome{
		Summary:       existing.Summary,
		Provider:      existing.Provider,
		Model:         existing.Model,
		PromptVersion: existing.PromptVersion,
	}
	for _, issue := range issues {
		ts := issue.Timestamp
		if ts != nil {
			v := *ts
			ts = &v
		}
		outcome.Issues = append(outcome.Issues, ParsedIssue{
			Category:     issue.Category,
			Severity:     issue.Severity,
			Timestamp:    ts,
			Description:  issue.Description,
			SuggestedFix: issue.SuggestedFix,
		})
	}

	logger.Infof("[ReviewCache] Cache HIT: asset=%d, fingerprint=%s..., source_run=%d, issues=%d",
		assetID, fingerprint[:8], existing.ID, len(outcome.Issues))
	return outcome
}
