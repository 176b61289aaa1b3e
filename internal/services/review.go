package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

// Review run statuses.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusAborted   = "aborted"
)

// RunNotifier receives terminal run transitions. Wired when notification
// channels are configured, nil otherwise.
type RunNotifier interface {
	RunCompleted(run *models.ReviewRun, asset *models.VideoAsset)
	RunFailed(run *models.ReviewRun, asset *models.VideoAsset)
}

// ReviewService drives a review run through its stages: rule compilation,
// AI submission, evidence capture and report generation. Each stage either
// advances the run or parks it in a terminal status with a classified error.
type ReviewService struct {
	db       *gorm.DB
	cfg      *config.Config
	rules    *RuleEngineService
	reviewer *AIReviewService
	evidence *EvidenceService
	reports  *ReportService
	cache    *ReviewCacheService
	notifier RunNotifier

	mu     sync.Mutex
	active map[uint]context.CancelFunc
}

func NewReviewService(db *gorm.DB, cfg *config.Config, provider Provider, exec *media.Executor) *ReviewService {
	return &ReviewService{
		db:       db,
		cfg:      cfg,
		rules:    NewRuleEngineService(),
		reviewer: NewAIReviewService(db, cfg, provider, exec),
		evidence: NewEvidenceService(cfg, exec),
		reports:  NewReportService(cfg),
		cache:    NewReviewCacheService(db),
		active:   make(map[uint]context.CancelFunc),
	}
}

// SetNotifier attaches the notification sink for terminal transitions.
func (s *ReviewService) SetNotifier(n RunNotifier) {
	s.notifier = n
}

// CreateRun registers a pending review for an asset. Execution happens
// separately so callers can queue or run inline.
func (s *ReviewService) CreateRun(assetID uint) (*models.ReviewRun, error) {
	var asset models.VideoAsset
	if err := s.db.First(&asset, assetID).Error; err != nil {
		return nil, fmt.Errorf("video asset %d not found", assetID)
	}

	run := &models.ReviewRun{
		RunKey:       uuid.New().String(),
		VideoAssetID: asset.ID,
		Status:       RunStatusPending,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}

	PublishRunEvent(run, asset.Filename)
	logger.Infof("[Review] Created run %d (%s) for %s", run.ID, run.RunKey, asset.Filename)
	return run, nil
}

// Execute runs the full pipeline for a pending or failed run. The passed
// context is the outer lifetime; Abort cancels the run from another
// goroutine through the tracked cancel func.
func (s *ReviewService) Execute(ctx context.Context, runID uint) error {
	var run models.ReviewRun
	if err := s.db.First(&run, runID).Error; err != nil {
		return fmt.Errorf("review run %d not found", runID)
	}
	if run.Status != RunStatusPending && run.Status != RunStatusFailed {
		return fmt.Errorf("review run %d is %s, expected pending or failed", runID, run.Status)
	}
	var asset models.VideoAsset
	if err := s.db.First(&asset, run.VideoAssetID).Error; err != nil {
		return fmt.Errorf("video asset %d not found", run.VideoAssetID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.track(run.ID, cancel)
	defer s.untrack(run.ID)

	now := time.Now()
	run.Status = RunStatusRunning
	run.StartedAt = &now
	run.CompletedAt = nil
	run.ErrorKind = ""
	run.ErrorMessage = ""
	if err := s.db.Save(&run).Error; err != nil {
		return err
	}
	PublishRunEvent(&run, asset.Filename)
	logger.Infof("[Review] Run %d started for %s (attempt %d)", run.ID, asset.Filename, run.RetryCount+1)

	spec, err := s.rules.BuildPrompt(&s.cfg.Review)
	if err != nil {
		return s.failRun(&run, &asset, err)
	}
	run.Provider = s.reviewer.provider.Name()
	run.Model = s.cfg.AI.Model
	run.PromptVersion = spec.Version
	run.RuleFingerprint = ComputeRuleFingerprint(spec, run.Provider, run.Model)
	if err := s.db.Save(&run).Error; err != nil {
		return err
	}

	if err := checkAbort(runCtx, "before AI submission"); err != nil {
		return s.failRun(&run, &asset, err)
	}

	outcome := s.cache.FindCachedOutcome(asset.ID, run.RuleFingerprint)
	if outcome == nil {
		outcome, err = s.reviewer.ReviewVideo(runCtx, &asset, spec, run.ID)
		if err != nil {
			return s.failRun(&run, &asset, err)
		}
	}
	run.Provider = outcome.Provider
	run.Model = outcome.Model
	run.PromptVersion = outcome.PromptVersion
	run.Summary = outcome.Summary

	issues := issuesFromOutcome(run.ID, outcome)
	if len(issues) > 0 {
		if err := s.db.Create(&issues).Error; err != nil {
			return s.failRun(&run, &asset, fmt.Errorf("persist issues: %w", err))
		}
	}

	if err := checkAbort(runCtx, "before evidence capture"); err != nil {
		return s.failRun(&run, &asset, err)
	}

	if err := s.evidence.Capture(runCtx, &asset, issues); err != nil {
		return s.failRun(&run, &asset, err)
	}
	for _, issue := range issues {
		if err := s.db.Save(issue).Error; err != nil {
			logger.Errorf("[Review] Failed to persist evidence state for issue %d: %v", issue.ID, err)
		}
	}

	if err := checkAbort(runCtx, "before report generation"); err != nil {
		return s.failRun(&run, &asset, err)
	}

	// Completion time is fixed before rendering so a later re-render of the
	// same run reproduces the artifact byte for byte.
	completed := time.Now()
	run.CompletedAt = &completed

	report := s.reports.Aggregate(&asset, &run, issues, outcome.Summary)
	content, err := s.reports.Render(report)
	if err != nil {
		return s.failRun(&run, &asset, err)
	}
	path, err := s.reports.Write(report, content)
	if err != nil {
		return s.failRun(&run, &asset, err)
	}

	run.Status = RunStatusCompleted
	run.Score = &report.Score
	run.Verdict = report.Verdict
	run.IssueCount = len(issues)
	run.ReportPath = path
	run.ReportFormat = report.Format
	if err := s.db.Save(&run).Error; err != nil {
		return err
	}
	PublishRunEvent(&run, asset.Filename)

	logger.Infof("[Review] Run %d completed: score %.0f, verdict %s, %d issues",
		run.ID, report.Score, report.Verdict, len(issues))
	if s.notifier != nil {
		s.notifier.RunCompleted(&run, &asset)
	}
	return nil
}

// Abort cancels a run. An in-flight execution is cancelled through its
// context; a pending run is parked directly.
func (s *ReviewService) Abort(runID uint) error {
	s.mu.Lock()
	cancel, executing := s.active[runID]
	s.mu.Unlock()
	if executing {
		logger.Infof("[Review] Aborting in-flight run %d", runID)
		cancel()
		return nil
	}

	var run models.ReviewRun
	if err := s.db.Preload("VideoAsset").First(&run, runID).Error; err != nil {
		return fmt.Errorf("review run %d not found", runID)
	}
	if run.Status != RunStatusPending {
		return fmt.Errorf("review run %d is %s, cannot abort", runID, run.Status)
	}

	run.Status = RunStatusAborted
	run.ErrorKind = ErrKindAborted
	run.ErrorMessage = "aborted before start"
	if err := s.db.Save(&run).Error; err != nil {
		return err
	}
	filename := ""
	if run.VideoAsset != nil {
		filename = run.VideoAsset.Filename
	}
	PublishRunEvent(&run, filename)
	logger.Infof("[Review] Aborted pending run %d", runID)
	return nil
}

// RegenerateReport re-renders the artifact for a completed run from its
// persisted state. The output is byte-identical to the original because
// all inputs, including the generation time, come from the database.
func (s *ReviewService) RegenerateReport(runID uint) (string, error) {
	var run models.ReviewRun
	if err := s.db.First(&run, runID).Error; err != nil {
		return "", fmt.Errorf("review run %d not found", runID)
	}
	if run.Status != RunStatusCompleted {
		return "", fmt.Errorf("review run %d is %s, only completed runs have reports", runID, run.Status)
	}
	var asset models.VideoAsset
	if err := s.db.First(&asset, run.VideoAssetID).Error; err != nil {
		return "", fmt.Errorf("video asset %d not found", run.VideoAssetID)
	}
	var issues []*models.ReviewIssue
	if err := s.db.Where("review_run_id = ?", run.ID).Order("position ASC").Find(&issues).Error; err != nil {
		return "", err
	}

	report := s.reports.Aggregate(&asset, &run, issues, run.Summary)
	content, err := s.reports.Render(report)
	if err != nil {
		return "", err
	}
	return s.reports.Write(report, content)
}

func (s *ReviewService) track(runID uint, cancel context.CancelFunc) {
	s.mu.Lock()
	s.active[runID] = cancel
	s.mu.Unlock()
}

func (s *ReviewService) untrack(runID uint) {
	s.mu.Lock()
	delete(s.active, runID)
	s.mu.Unlock()
}

// failRun parks the run in a terminal status with the classified error.
// It returns the original error for the caller's benefit.
func (s *ReviewService) failRun(run *models.ReviewRun, asset *models.VideoAsset, err error) error {
	status := RunStatusFailed
	if IsKind(err, ErrKindAborted) {
		status = RunStatusAborted
	}

	now := time.Now()
	run.Status = status
	run.ErrorKind = ErrorKind(err)
	run.ErrorMessage = truncate(err.Error(), 2000)
	run.CompletedAt = &now
	if dbErr := s.db.Save(run).Error; dbErr != nil {
		logger.Errorf("[Review] Failed to persist %s state for run %d: %v", status, run.ID, dbErr)
	}
	PublishRunEvent(run, asset.Filename)

	if status == RunStatusAborted {
		logger.Warnf("[Review] Run %d aborted: %v", run.ID, err)
	} else {
		logger.Errorf("[Review] Run %d failed (%s): %v", run.ID, run.ErrorKind, err)
		if s.notifier != nil {
			s.notifier.RunFailed(run, asset)
		}
	}
	return err
}

// issuesFromOutcome maps parsed findings to issue rows, numbered in reply
// order. Position doubles as the display-sort tiebreaker and the evidence
// filename index.
func issuesFromOutcome(runID uint, outcome *AIReviewOutcome) []*models.ReviewIssue {
	issues := make([]*models.ReviewIssue, 0, len(outcome.Issues))
	for i, parsed := range outcome.Issues {
		issues = append(issues, &models.ReviewIssue{
			ReviewRunID:    runID,
			Position:       i + 1,
			Category:       parsed.Category,
			Severity:       parsed.Severity,
			Timestamp:      parsed.Timestamp,
			Description:    parsed.Description,
			SuggestedFix:   parsed.SuggestedFix,
			EvidenceStatus: "none",
		})
	}
	return issues
}

// checkAbort converts outer-context cancellation into a classified abort
// at a stage boundary.
func checkAbort(ctx context.Context, stage string) error {
	if ctx.Err() != nil {
		return NewAbortedError("canceled " + stage)
	}
	return nil
}
