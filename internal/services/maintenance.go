package services

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/models"
)

const retentionSweepInterval = 24 * time.Hour

// MaintenanceService removes aged rows and artifacts according to the
// retention settings in system config. Reports and screenshots are deleted
// from disk only; the run and issue rows stay so history and dashboards
// keep working. A report deleted by retention can be rebuilt with the
// regenerate endpoint as long as the run row exists.
type MaintenanceService struct {
	db      *gorm.DB
	cfg     *config.Config
	configs *SystemConfigService
	logs    *SystemLogService
	usage   *AIUsageService
}

func NewMaintenanceService(db *gorm.DB, cfg *config.Config) *MaintenanceService {
	return &MaintenanceService{
		db:      db,
		cfg:     cfg,
		configs: NewSystemConfigService(db),
		logs:    NewSystemLogService(db),
		usage:   NewAIUsageService(db),
	}
}

// StartRetentionScheduler sweeps once at startup and then daily.
func StartRetentionScheduler(db *gorm.DB, cfg *config.Config) {
	service := NewMaintenanceService(db, cfg)

	go func() {
		service.RunCleanup()

		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			service.RunCleanup()
		}
	}()

	log.Printf("[Maintenance] Retention sweep scheduled every %v", retentionSweepInterval)
}

// CleanupResult reports what one retention sweep removed.
type CleanupResult struct {
	LogsDeleted        int64 `json:"logs_deleted"`
	UsageLogsDeleted   int64 `json:"usage_logs_deleted"`
	ReportsDeleted     int   `json:"reports_deleted"`
	ScreenshotsDeleted int   `json:"screenshots_deleted"`
}

// RunCleanup applies all retention policies once. Individual failures are
// logged and skipped so one bad file never blocks the rest of the sweep.
func (s *MaintenanceService) RunCleanup() *CleanupResult {
	result := &CleanupResult{}
	retention := s.configs.GetRetentionConfig()

	deleted, err := s.logs.CleanupOldLogs(retention.LogRetentionDays)
	if err != nil {
		log.Printf("[Maintenance] System log cleanup failed: %v", err)
	}
	result.LogsDeleted = deleted

	usageCutoff := time.Now().AddDate(0, 0, -retention.ReportRetentionDays)
	usageDeleted, err := s.usage.CleanupBefore(usageCutoff)
	if err != nil {
		log.Printf("[Maintenance] AI usage cleanup failed: %v", err)
	}
	result.UsageLogsDeleted = usageDeleted

	result.ReportsDeleted = s.cleanupReports(retention.ReportRetentionDays)
	result.ScreenshotsDeleted = s.cleanupScreenshots(retention.EvidenceRetentionDays)

	if result.LogsDeleted > 0 || result.UsageLogsDeleted > 0 || result.ReportsDeleted > 0 || result.ScreenshotsDeleted > 0 {
		log.Printf("[Maintenance] Sweep removed %d logs, %d usage rows, %d reports, %d screenshots",
			result.LogsDeleted, result.UsageLogsDeleted, result.ReportsDeleted, result.ScreenshotsDeleted)
	}
	return result
}

func (s *MaintenanceService) cleanupReports(retentionDays int) int {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0

	for _, path := range agedFiles(s.cfg.Paths.Reports, cutoff, ".html", ".md") {
		if err := os.Remove(path); err != nil {
			log.Printf("[Maintenance] Could not remove report %s: %v", filepath.Base(path), err)
			continue
		}
		// The run keeps its row; clearing the path makes the report
		// endpoint answer "regenerate" instead of serving a dead link.
		s.db.Model(&models.ReviewRun{}).
			Where("report_path = ?", path).
			Update("report_path", "")
		removed++
	}
	return removed
}

func (s *MaintenanceService) cleanupScreenshots(retentionDays int) int {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0

	for _, path := range agedFiles(s.cfg.Paths.Screenshots, cutoff, ".jpg") {
		if err := os.Remove(path); err != nil {
			log.Printf("[Maintenance] Could not remove screenshot %s: %v", filepath.Base(path), err)
			continue
		}
		s.db.Model(&models.ReviewIssue{}).
			Where("evidence_path = ?", path).
			Updates(map[string]interface{}{"evidence_status": "expired", "evidence_path": ""})
		removed++
	}
	return removed
}

// agedFiles lists regular files under dir with a matching extension whose
// modification time is before cutoff.
func agedFiles(dir string, cutoff time.Time, extensions ...string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Maintenance] Cannot read %s: %v", dir, err)
		}
		return nil
	}

	var aged []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !hasExtension(entry.Name(), extensions) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			aged = append(aged, filepath.Join(dir, entry.Name()))
		}
	}
	return aged
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
