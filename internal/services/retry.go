package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
)

const (
	MaxRetryCount  = 3
	RetryInterval  = 5 * time.Minute
	RetryBatchSize = 5
)

// RetryService re-runs reviews that failed on the provider side. Failures
// caused by configuration or unparseable replies are not picked up; re-running
// those without a change would fail identically.
type RetryService struct {
	db     *gorm.DB
	review *ReviewService
}

func NewRetryService(db *gorm.DB, review *ReviewService) *RetryService {
	return &RetryService{db: db, review: review}
}

func StartRetryScheduler(db *gorm.DB, review *ReviewService) {
	service := NewRetryService(db, review)
	ticker := time.NewTicker(RetryInterval)

	go func() {
		for range ticker.C {
			service.ProcessFailedRuns()
		}
	}()

	log.Printf("[Retry] Scheduler started, interval: %v, max retries: %d", RetryInterval, MaxRetryCount)
}

func (s *RetryService) ProcessFailedRuns() {
	var failedRuns []models.ReviewRun

	err := s.db.Where("status = ? AND error_kind = ? AND retry_count < ?",
		RunStatusFailed, ErrKindAIProvider, MaxRetryCount).
		Order("created_at DESC").
		Limit(RetryBatchSize).
		Find(&failedRuns).Error

	if err != nil {
		log.Printf("[Retry] Failed to fetch failed runs: %v", err)
		return
	}

	if len(failedRuns) == 0 {
		return
	}

	log.Printf("[Retry] Processing %d failed runs", len(failedRuns))

	for _, run := range failedRuns {
		s.retryRun(&run)
	}
}

func (s *RetryService) retryRun(run *models.ReviewRun) {
	log.Printf("[Retry] Retrying run %d (attempt %d/%d)", run.ID, run.RetryCount+1, MaxRetryCount)

	run.RetryCount++
	if err := s.db.Model(run).Update("retry_count", run.RetryCount).Error; err != nil {
		log.Printf("[Retry] Failed to bump retry count for run %d: %v", run.ID, err)
		return
	}

	if err := s.review.Execute(context.Background(), run.ID); err != nil {
		log.Printf("[Retry] Run %d failed again: %v", run.ID, err)
		if run.RetryCount >= MaxRetryCount {
			log.Printf("[Retry] Run %d exceeded max retries, leaving as permanently failed", run.ID)
		}
		return
	}

	log.Printf("[Retry] Run %d succeeded on retry", run.ID)
}

// ManualRetry resets the automatic retry budget for an operator-requested
// re-run. Execution goes through the task queue, not inline, so the caller
// gets the run back to enqueue.
func (s *RetryService) ManualRetry(runID uint) (*models.ReviewRun, error) {
	var run models.ReviewRun
	if err := s.db.First(&run, runID).Error; err != nil {
		return nil, err
	}

	if run.Status != RunStatusFailed {
		return nil, fmt.Errorf("review run %d is %s, only failed runs can be retried", run.ID, run.Status)
	}

	run.RetryCount = 0
	if err := s.db.Model(&run).Update("retry_count", 0).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
