package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
)

// settleDelay keeps the scanner away from files still being written by the
// email collaborator.
const settleDelay = time.Minute

// SidecarMeta is the optional metadata the email collaborator drops next
// to each attachment as <filename>.json.
type SidecarMeta struct {
	Subject string    `json:"subject"`
	Sender  string    `json:"sender"`
	Date    time.Time `json:"date"`
}

// WatchService scans the downloads directory for new video files and feeds
// them into the review pipeline. The directory is the hand-off boundary:
// an external collaborator saves email attachments there, this service
// never talks to a mail server itself.
type WatchService struct {
	db     *gorm.DB
	cfg    *config.Config
	intake *IntakeService
	review *ReviewService
	queue  TaskQueue

	cronScheduler *cron.Cron

	mu   sync.Mutex
	seen map[string]time.Time // path -> modtime at last ingest
}

func NewWatchService(db *gorm.DB, cfg *config.Config, intake *IntakeService, review *ReviewService, queue TaskQueue) *WatchService {
	return &WatchService{
		db:     db,
		cfg:    cfg,
		intake: intake,
		review: review,
		queue:  queue,
		seen:   make(map[string]time.Time),
	}
}

// StartScheduler begins periodic scanning when watching is enabled.
func (s *WatchService) StartScheduler() {
	if !s.cfg.Email.Enabled {
		log.Println("[Watch] Directory watch disabled")
		return
	}

	interval := s.cfg.Email.CheckIntervalMinutes
	if interval <= 0 {
		interval = 5
	}

	s.cronScheduler = cron.New()
	_, err := s.cronScheduler.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		s.Scan(context.Background())
	})
	if err != nil {
		log.Printf("[Watch] Failed to schedule scan: %v", err)
		return
	}
	s.cronScheduler.Start()
	log.Printf("[Watch] Watching %s every %dm", s.cfg.Paths.Downloads, interval)
}

func (s *WatchService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// Scan walks the downloads directory once and ingests anything new. It
// returns the number of review runs started.
func (s *WatchService) Scan(ctx context.Context) int {
	entries, err := os.ReadDir(s.cfg.Paths.Downloads)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Watch] Cannot read %s: %v", s.cfg.Paths.Downloads, err)
		}
		return 0
	}

	started := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !s.isVideoName(name) {
			continue
		}

		path := filepath.Join(s.cfg.Paths.Downloads, name)
		info, err := entry.Info()
		if err != nil {
			continue
		}
		// Give half-written files time to settle.
		if time.Since(info.ModTime()) < settleDelay {
			continue
		}
		if s.alreadySeen(path, info.ModTime()) {
			continue
		}

		meta := readSidecar(path)
		if !matchesFilter(s.cfg.Email.Filter, meta, info.ModTime()) {
			log.Printf("[Watch] Skipping %s: does not match filter", name)
			s.markSeen(path, info.ModTime())
			continue
		}

		if s.ingestFile(ctx, path, meta) {
			started++
		}
		s.markSeen(path, info.ModTime())
	}
	return started
}

func (s *WatchService) ingestFile(ctx context.Context, path string, meta *SidecarMeta) bool {
	var sourceMeta string
	if meta != nil {
		if encoded, err := json.Marshal(meta); err == nil {
			sourceMeta = string(encoded)
		}
	}

	asset, created, err := s.intake.Ingest(ctx, path, "watch", sourceMeta)
	if err != nil {
		log.Printf("[Watch] Intake failed for %s: %v", filepath.Base(path), err)
		return false
	}
	if !created {
		log.Printf("[Watch] %s already known (asset %d), skipping", filepath.Base(path), asset.ID)
		return false
	}

	run, err := s.review.CreateRun(asset.ID)
	if err != nil {
		log.Printf("[Watch] Could not create run for asset %d: %v", asset.ID, err)
		return false
	}
	if err := s.queue.Enqueue(&ReviewTask{RunID: run.ID, AssetID: asset.ID, Trigger: "watch"}); err != nil {
		log.Printf("[Watch] Could not enqueue run %d: %v", run.ID, err)
		return false
	}

	log.Printf("[Watch] Queued review %d for %s", run.ID, filepath.Base(path))
	return true
}

func (s *WatchService) isVideoName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range s.cfg.Video.SupportedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

func (s *WatchService) alreadySeen(path string, modTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.seen[path]
	return ok && last.Equal(modTime)
}

func (s *WatchService) markSeen(path string, modTime time.Time) {
	s.mu.Lock()
	s.seen[path] = modTime
	s.mu.Unlock()
}

// readSidecar loads <path>.json metadata when the collaborator wrote one.
func readSidecar(path string) *SidecarMeta {
	data, err := os.ReadFile(path + ".json")
	if err != nil {
		return nil
	}
	var meta SidecarMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		log.Printf("[Watch] Ignoring malformed sidecar for %s: %v", filepath.Base(path), err)
		return nil
	}
	return &meta
}

// matchesFilter applies the configured sender/subject/date filter. Sender
// and subject can only be checked against sidecar metadata; without a
// sidecar those filters pass. The date check falls back to file modtime.
func matchesFilter(filter config.EmailFilterConfig, meta *SidecarMeta, fallback time.Time) bool {
	if meta != nil {
		if filter.Sender != "" && !strings.Contains(strings.ToLower(meta.Sender), strings.ToLower(filter.Sender)) {
			return false
		}
		if filter.SubjectContains != "" && !strings.Contains(strings.ToLower(meta.Subject), strings.ToLower(filter.SubjectContains)) {
			return false
		}
	}

	if filter.SinceDate != "" {
		since, err := time.Parse("2006-01-02", filter.SinceDate)
		if err != nil {
			return true
		}
		received := fallback
		if meta != nil && !meta.Date.IsZero() {
			received = meta.Date
		}
		if received.Before(since) {
			return false
		}
	}
	return true
}
