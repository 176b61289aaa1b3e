package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/pkg/logger"
)

const (
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 30 * time.Second
	// ffmpeg scene score above which a frame counts as a cut
	sceneThreshold = 0.3
)

// AIReviewService sends a video through the configured provider and turns
// the reply into structured findings. It owns sampling, request batching,
// rate limiting, retries and the malformed-reply correction round.
type AIReviewService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider Provider
	media    *media.Executor
	limiter  *rate.Limiter
	usage    *AIUsageService
}

func NewAIReviewService(db *gorm.DB, cfg *config.Config, provider Provider, exec *media.Executor) *AIReviewService {
	limit := rate.Inf
	if cfg.AI.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.AI.RequestsPerMinute) / 60.0)
	}
	return &AIReviewService{
		db:       db,
		cfg:      cfg,
		provider: provider,
		media:    exec,
		limiter:  rate.NewLimiter(limit, 1),
		usage:    NewAIUsageService(db),
	}
}

// ParsedIssue is one finding from the model after category and severity
// cleanup. Timestamp is nil for issues that apply to the whole video.
type ParsedIssue struct {
	Category     string
	Severity     string
	Timestamp    *float64
	Description  string
	SuggestedFix string
}

// AIReviewOutcome is the merged result of all provider requests for one run.
type AIReviewOutcome struct {
	Summary       string
	Issues        []ParsedIssue
	Provider      string
	Model         string
	PromptVersion string
	BatchCount    int
}

// reviewReply mirrors the JSON object the prompt instructs the model to
// return.
type reviewReply struct {
	Summary string       `json:"summary"`
	Issues  []replyIssue `json:"issues"`
}

type replyIssue struct {
	Category     string   `json:"category"`
	Severity     string   `json:"severity"`
	Timestamp    *float64 `json:"timestamp"`
	Description  string   `json:"description"`
	SuggestedFix string   `json:"suggested_fix"`
}

// ReviewVideo runs the full provider conversation for one video. Providers
// that ingest video get the file directly; everyone else gets sampled
// frames, tiled into contact sheets when they exceed the image limit.
func (s *AIReviewService) ReviewVideo(ctx context.Context, asset *models.VideoAsset, spec *PromptSpec, runID uint) (*AIReviewOutcome, error) {
	caps := s.provider.Capabilities()
	enabled := make(map[string]bool, len(spec.Categories))
	for _, c := range spec.Categories {
		enabled[c] = true
	}

	outcome := &AIReviewOutcome{
		Provider:      s.provider.Name(),
		Model:         s.cfg.AI.Model,
		PromptVersion: spec.Version,
	}

	logger.Infof("[AIReview] Provider: %s, model: %s, full_video: %v, prompt length: %d chars",
		s.provider.Name(), s.cfg.AI.Model, caps.FullVideo, len(spec.Document))

	if caps.FullVideo {
		reply, err := s.submitParsed(ctx, runID, &SubmitRequest{
			System:      spec.System,
			Prompt:      buildFullVideoPrompt(spec.Document, asset.DurationSeconds),
			VideoPath:   asset.SourcePath,
			Temperature: s.cfg.AI.Temperature,
			MaxTokens:   s.cfg.AI.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		outcome.Summary = reply.Summary
		outcome.BatchCount = 1
		s.collectIssues(outcome, reply, enabled, nil)
		return outcome, nil
	}

	timestamps, err := s.sampleTimestamps(ctx, asset)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "adsentry-frames-")
	if err != nil {
		return nil, NewExtractionError("cannot create frame directory", err)
	}
	defer os.RemoveAll(dir)

	for i, ts := range timestamps {
		out := filepath.Join(dir, fmt.Sprintf("sample_%03d.jpg", i+1))
		if err := s.media.ExtractFrame(ctx, asset.SourcePath, out, ts); err != nil {
			return nil, NewExtractionError(fmt.Sprintf("frame extraction failed at %.2fs", ts), err)
		}
	}

	batches := PlanBatches(timestamps, caps.MaxImages, s.cfg.Video.GridCols)
	logger.Infof("[AIReview] Sampled %d frames into %d request(s), max %d images per request",
		len(timestamps), len(batches), caps.MaxImages)

	var summaries []string
	for i, batch := range batches {
		images, err := s.loadBatchImages(ctx, dir, batch)
		if err != nil {
			return nil, err
		}

		reply, err := s.submitParsed(ctx, runID, &SubmitRequest{
			System:      spec.System,
			Prompt:      buildBatchPrompt(spec.Document, batch, i, len(batches), asset.DurationSeconds),
			Images:      images,
			Temperature: s.cfg.AI.Temperature,
			MaxTokens:   s.cfg.AI.MaxTokens,
		})
		if err != nil {
			return nil, err
		}

		if reply.Summary != "" {
			summaries = append(summaries, reply.Summary)
		}
		var snap []float64
		if batch.HasSheet() {
			snap = batch.Timestamps()
		}
		s.collectIssues(outcome, reply, enabled, snap)
	}

	outcome.Summary = strings.Join(summaries, " ")
	outcome.BatchCount = len(batches)
	return outcome, nil
}

// sampleTimestamps picks the frame times to show the provider. Scene mode
// falls back to uniform sampling when detection finds nothing usable.
func (s *AIReviewService) sampleTimestamps(ctx context.Context, asset *models.VideoAsset) ([]float64, error) {
	v := s.cfg.Video
	if v.SamplingMode == "scene" {
		scenes, err := s.media.DetectScenes(ctx, asset.SourcePath, sceneThreshold)
		if err != nil {
			logger.Warnf("[AIReview] Scene detection failed, falling back to uniform sampling: %v", err)
		} else if len(scenes) > 0 {
			return media.SelectScenes(scenes, v.MaxFrames), nil
		} else {
			logger.Infof("[AIReview] No scene changes detected, falling back to uniform sampling")
		}
	}

	timestamps := media.UniformTimestamps(asset.DurationSeconds, v.FrameInterval, v.MaxFrames)
	if len(timestamps) == 0 {
		return nil, NewExtractionError("no frames could be sampled from video", nil)
	}
	return timestamps, nil
}

// loadBatchImages reads plain frames from disk and composes contact sheets
// on demand from the extracted frame sequence.
func (s *AIReviewService) loadBatchImages(ctx context.Context, dir string, batch FrameBatch) ([]SubmitImage, error) {
	pattern := filepath.Join(dir, "sample_%03d.jpg")
	images := make([]SubmitImage, 0, len(batch.Images))

	for _, img := range batch.Images {
		var path string
		if img.Sheet {
			path = filepath.Join(dir, fmt.Sprintf("sheet_%03d.jpg", img.StartIndex+1))
			if err := s.media.ComposeSheet(ctx, pattern, img.StartIndex+1, len(img.Timestamps), s.cfg.Video.GridCols, path); err != nil {
				return nil, NewExtractionError("contact sheet composition failed", err)
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("sample_%03d.jpg", img.StartIndex+1))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewExtractionError("cannot read extracted frame", err)
		}
		images = append(images, SubmitImage{Data: data, MimeType: "image/jpeg"})
	}
	return images, nil
}

// submitParsed sends one request and parses the reply. A malformed reply
// gets exactly one correction round before the run fails with the raw
// reply attached.
func (s *AIReviewService) submitParsed(ctx context.Context, runID uint, req *SubmitRequest) (*reviewReply, error) {
	result, err := s.submit(ctx, runID, req)
	if err != nil {
		return nil, err
	}

	reply, perr := parseReviewReply(result.Content)
	if perr == nil {
		return reply, nil
	}

	logger.Warnf("[AIReview] Malformed reply (%v), requesting correction", perr)
	corrected := *req
	corrected.Prompt = correctivePrompt(req.Prompt, result.Content)

	result, err = s.submit(ctx, runID, &corrected)
	if err != nil {
		return nil, err
	}
	reply, perr = parseReviewReply(result.Content)
	if perr != nil {
		return nil, NewAIResponseError(fmt.Sprintf("reply is not valid JSON after correction: %v", perr), result.Content)
	}
	return reply, nil
}

// submit performs one provider call with rate limiting, a per-request
// timeout and exponential backoff on transient failures.
func (s *AIReviewService) submit(ctx context.Context, runID uint, req *SubmitRequest) (*SubmitResult, error) {
	maxRetries := s.cfg.AI.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			logger.Warnf("[AIReview] Provider call failed, retrying in %s (attempt %d/%d): %v",
				delay, attempt, maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, NewAbortedError("review canceled while waiting to retry")
			case <-time.After(delay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, NewAbortedError("review canceled while rate limited")
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if s.cfg.AI.RequestTimeoutSeconds > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.AI.RequestTimeoutSeconds)*time.Second)
		}

		start := time.Now()
		result, err := s.provider.Submit(callCtx, req)
		cancel()
		s.recordUsage(runID, len(req.Images), result, time.Since(start), err)

		if err == nil {
			logger.Infof("[AIReview] Response length: %d chars, tokens: %d", len(result.Content), result.TotalTokens)
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, NewAbortedError("review canceled")
		}
		lastErr = err
	}

	return nil, NewAIProviderError(
		fmt.Sprintf("provider %s failed after %d attempts", s.provider.Name(), maxRetries+1), lastErr)
}

// backoffDelay doubles from the base delay per attempt, capped at the
// maximum.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

func (s *AIReviewService) recordUsage(runID uint, imageCount int, result *SubmitResult, latency time.Duration, callErr error) {
	entry := &models.AIUsageLog{
		Provider:   s.provider.Name(),
		Model:      s.cfg.AI.Model,
		ImageCount: imageCount,
		LatencyMs:  latency.Milliseconds(),
		Success:    callErr == nil,
	}
	if runID > 0 {
		id := runID
		entry.ReviewRunID = &id
	}
	if result != nil {
		entry.PromptTokens = result.PromptTokens
		entry.CompletionTokens = result.CompletionTokens
		entry.TotalTokens = result.TotalTokens
	}
	if callErr != nil {
		entry.ErrorMessage = truncate(callErr.Error(), 500)
	}
	s.usage.Record(entry)
}

// collectIssues filters the raw findings into the outcome. Unknown and
// disabled categories are dropped with a warning, unknown severities are
// demoted to medium, and sheet-based replies get their timestamps snapped
// back to the frames that were actually shown.
func (s *AIReviewService) collectIssues(outcome *AIReviewOutcome, reply *reviewReply, enabled map[string]bool, sheetTimes []float64) {
	for _, ri := range reply.Issues {
		category := strings.ToLower(strings.TrimSpace(ri.Category))
		if !IsKnownCategory(category) {
			logger.Warnf("[AIReview] Dropping issue with unknown category %q: %s", ri.Category, truncate(ri.Description, 80))
			continue
		}
		if !enabled[category] {
			logger.Warnf("[AIReview] Dropping issue for disabled category %q: %s", category, truncate(ri.Description, 80))
			continue
		}

		severity, known := normalizeSeverity(ri.Severity)
		if !known {
			logger.Warnf("[AIReview] Unknown severity %q, recording as medium: %s", ri.Severity, truncate(ri.Description, 80))
		}

		timestamp := ri.Timestamp
		if timestamp != nil && len(sheetTimes) > 0 {
			snapped := SnapTimestamp(*timestamp, sheetTimes)
			timestamp = &snapped
		}

		outcome.Issues = append(outcome.Issues, ParsedIssue{
			Category:     category,
			Severity:     severity,
			Timestamp:    timestamp,
			Description:  strings.TrimSpace(ri.Description),
			SuggestedFix: strings.TrimSpace(ri.SuggestedFix),
		})
	}
}

// normalizeSeverity lowercases the model's severity and reports whether it
// belongs to the known set. Unknown values map to medium.
func normalizeSeverity(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return "low", true
	case "medium":
		return "medium", true
	case "high":
		return "high", true
	case "critical":
		return "critical", true
	default:
		return "medium", false
	}
}

// parseReviewReply decodes the model output into the expected shape.
func parseReviewReply(content string) (*reviewReply, error) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, fmt.Errorf("reply contains no JSON object")
	}

	var reply reviewReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if reply.Summary == "" && reply.Issues == nil {
		return nil, fmt.Errorf("reply is missing both summary and issues")
	}
	return &reply, nil
}

// extractJSON pulls the JSON object out of a reply that may wrap it in
// markdown fences or surrounding prose.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)

	// Prefer a fenced block when present so prose outside it cannot
	// confuse the brace slice below.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = rest
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func buildFullVideoPrompt(doc string, duration float64) string {
	return fmt.Sprintf("%s\n\n## Provided Video\nThe complete video file is attached. It is %.2f seconds long.", doc, duration)
}

func buildBatchPrompt(doc string, batch FrameBatch, index, total int, duration float64) string {
	var b strings.Builder
	b.WriteString(doc)
	b.WriteString("\n\n## Provided Frames\n")
	if total > 1 {
		fmt.Fprintf(&b, "This request covers part %d of %d of the sampled frames.\n", index+1, total)
	}
	fmt.Fprintf(&b, "The video is %.2f seconds long.\n", duration)
	b.WriteString(BatchManifest(batch))
	b.WriteString("\nReport each timestamp as the closest frame time listed above.")
	return b.String()
}

func correctivePrompt(prompt, raw string) string {
	return fmt.Sprintf("%s\n\n## Correction\nYour previous reply could not be parsed as JSON. It began with:\n%s\nResend ONLY the JSON object described in the output format, with no surrounding text.",
		prompt, truncate(raw, 300))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
