package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
)

// digestLockTTL bounds how long a crashed instance can hold the digest
// lock before another instance takes over.
const digestLockTTL = 10 * time.Minute

type DailyDigestService struct {
	db             *gorm.DB
	notifications  *NotificationService
	holidays       *HolidayService
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
	instanceID     string
}

func NewDailyDigestService(db *gorm.DB, notifications *NotificationService) *DailyDigestService {
	hostname, _ := os.Hostname()
	return &DailyDigestService{
		db:            db,
		notifications: notifications,
		holidays:      NewHolidayService(),
		instanceID:    fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
	}
}

type DigestStats struct {
	TotalVideos      int            `json:"total_videos"`
	TotalRuns        int            `json:"total_runs"`
	PassedCount      int            `json:"passed_count"`
	FailedCount      int            `json:"failed_count"`
	ErroredCount     int            `json:"errored_count"`
	AverageScore     float64        `json:"average_score"`
	CriticalIssues   int            `json:"critical_issues"`
	IssuesByCategory map[string]int `json:"issues_by_category"`
	IssuesBySeverity map[string]int `json:"issues_by_severity"`
	WorstRuns        []WorstRun     `json:"worst_runs"`
}

type WorstRun struct {
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	Verdict    string  `json:"verdict"`
	IssueCount int     `json:"issue_count"`
}

func (s *DailyDigestService) StartScheduler() {
	s.cronScheduler = cron.New()

	s.updateSchedule()

	s.cronScheduler.Start()
	log.Println("[Digest] Scheduler started")
}

func (s *DailyDigestService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// UpdateSchedule re-reads digest_time and reschedules the cron entry.
// Called after the digest settings change.
func (s *DailyDigestService) UpdateSchedule() {
	if s.cronScheduler == nil {
		return
	}
	s.updateSchedule()
}

func (s *DailyDigestService) updateSchedule() {
	if s.currentEntryID != 0 {
		s.cronScheduler.Remove(s.currentEntryID)
	}

	digestTime := s.getDigestTime()
	parts := strings.Split(digestTime, ":")
	hour := "9"
	minute := "0"
	if len(parts) == 2 {
		hour = parts[0]
		minute = parts[1]
	}

	cronExpr := fmt.Sprintf("%s %s * * *", minute, hour)

	entryID, err := s.cronScheduler.AddFunc(cronExpr, func() {
		if err := s.GenerateAndSendDigest(); err != nil {
			log.Printf("[Digest] Scheduled digest failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("[Digest] Failed to add cron job: %v", err)
		return
	}

	s.currentEntryID = entryID
	log.Printf("[Digest] Scheduled at %s (cron: %s)", digestTime, cronExpr)
}

func (s *DailyDigestService) configValue(key, fallback string) string {
	var config models.SystemConfig
	if err := s.db.Where("`key` = ?", key).First(&config).Error; err != nil {
		return fallback
	}
	if config.Value == "" {
		return fallback
	}
	return config.Value
}

func (s *DailyDigestService) isEnabled() bool {
	return s.configValue("digest_enabled", "false") == "true"
}

func (s *DailyDigestService) getDigestTime() string {
	return s.configValue("digest_time", "09:00")
}

func (s *DailyDigestService) getCountryCode() string {
	return s.configValue("digest_country_code", "NONE")
}

func (s *DailyDigestService) skipHolidays() bool {
	return s.configValue("digest_skip_holidays", "true") == "true"
}

// tryAcquireLock claims the named lock for this instance. When several
// instances share one database only the first caller per key wins; a lock
// left by a crashed instance is stolen after it expires.
func (s *DailyDigestService) tryAcquireLock(name, key string) bool {
	now := time.Now()
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(digestLockTTL),
	}
	if err := s.db.Create(&lock).Error; err == nil {
		return true
	}

	var existing models.SchedulerLock
	if err := s.db.Where("lock_name = ? AND lock_key = ?", name, key).First(&existing).Error; err != nil {
		return false
	}
	if existing.ExpiresAt.After(now) {
		return false
	}

	// Guard the steal on the old expiry so two instances cannot both win.
	result := s.db.Model(&models.SchedulerLock{}).
		Where("id = ? AND expires_at = ?", existing.ID, existing.ExpiresAt).
		Updates(map[string]interface{}{
			"locked_by":  s.instanceID,
			"locked_at":  now,
			"expires_at": now.Add(digestLockTTL),
		})
	return result.Error == nil && result.RowsAffected == 1
}

// GenerateAndSendDigest is the scheduled entry point. It respects the
// enable flag and the holiday calendar, and coordinates across instances
// through the scheduler lock.
func (s *DailyDigestService) GenerateAndSendDigest() error {
	if !s.isEnabled() {
		log.Println("[Digest] Digest disabled, skipping")
		return nil
	}

	now := time.Now()
	if s.skipHolidays() && !s.holidays.IsWorkday(now, s.getCountryCode()) {
		log.Printf("[Digest] %s is not a workday in %s, skipping", now.Format("2006-01-02"), s.getCountryCode())
		return nil
	}

	if !s.tryAcquireLock("daily_digest", now.Format("2006-01-02")) {
		log.Println("[Digest] Another instance holds the digest lock, skipping")
		return nil
	}

	digest, err := s.GenerateDigest()
	if err != nil {
		return err
	}

	if err := s.sendDigest(digest); err != nil {
		digest.NotifyError = err.Error()
		s.db.Save(digest)
		return err
	}

	notified := time.Now()
	digest.NotifiedAt = &notified
	digest.NotifyError = ""
	s.db.Save(digest)

	log.Printf("[Digest] Digest generated and sent (ID: %d)", digest.ID)
	return nil
}

// GenerateDigest collects today's stats and upserts the digest row for the
// date.
func (s *DailyDigestService) GenerateDigest() (*models.DailyDigest, error) {
	log.Println("[Digest] Generating daily digest...")

	today := time.Now()
	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := s.collectStats(startOfDay, endOfDay)

	categoryJSON, _ := json.Marshal(stats.IssuesByCategory)
	severityJSON, _ := json.Marshal(stats.IssuesBySeverity)
	worstJSON, _ := json.Marshal(stats.WorstRuns)

	digest := &models.DailyDigest{
		ReportDate:       startOfDay,
		TotalVideos:      stats.TotalVideos,
		TotalRuns:        stats.TotalRuns,
		PassedCount:      stats.PassedCount,
		FailedCount:      stats.FailedCount,
		ErroredCount:     stats.ErroredCount,
		AverageScore:     stats.AverageScore,
		CriticalIssues:   stats.CriticalIssues,
		IssuesByCategory: string(categoryJSON),
		IssuesBySeverity: string(severityJSON),
		WorstRuns:        string(worstJSON),
	}

	var existing models.DailyDigest
	if err := s.db.Where("report_date = ?", startOfDay).First(&existing).Error; err == nil {
		digest.ID = existing.ID
		digest.CreatedAt = existing.CreatedAt
		digest.NotifiedAt = existing.NotifiedAt
		if err := s.db.Save(digest).Error; err != nil {
			log.Printf("[Digest] Failed to update digest: %v", err)
			return nil, err
		}
		log.Printf("[Digest] Updated existing digest (ID: %d)", digest.ID)
	} else {
		if err := s.db.Create(digest).Error; err != nil {
			log.Printf("[Digest] Failed to save digest: %v", err)
			return nil, err
		}
		log.Printf("[Digest] Created new digest (ID: %d)", digest.ID)
	}

	return digest, nil
}

func (s *DailyDigestService) collectStats(startTime, endTime time.Time) DigestStats {
	stats := DigestStats{
		IssuesByCategory: make(map[string]int),
		IssuesBySeverity: make(map[string]int),
	}

	var totalVideos int64
	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ?", startTime, endTime).
		Distinct("video_asset_id").
		Count(&totalVideos)
	stats.TotalVideos = int(totalVideos)

	var totalRuns int64
	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ?", startTime, endTime).
		Count(&totalRuns)
	stats.TotalRuns = int(totalRuns)

	var passedCount int64
	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND verdict = ?", startTime, endTime, VerdictPass).
		Count(&passedCount)
	stats.PassedCount = int(passedCount)

	var failedCount int64
	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND verdict = ?", startTime, endTime, VerdictFail).
		Count(&failedCount)
	stats.FailedCount = int(failedCount)

	var erroredCount int64
	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND status = ?", startTime, endTime, RunStatusFailed).
		Count(&erroredCount)
	stats.ErroredCount = int(erroredCount)

	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND score IS NOT NULL", startTime, endTime).
		Select("COALESCE(AVG(score), 0)").
		Scan(&stats.AverageScore)

	var categoryRows []struct {
		Category string
		Count    int
	}
	s.db.Model(&models.ReviewIssue{}).
		Select("category, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", startTime, endTime).
		Group("category").
		Scan(&categoryRows)
	for _, row := range categoryRows {
		stats.IssuesByCategory[row.Category] = row.Count
	}

	var severityRows []struct {
		Severity string
		Count    int
	}
	s.db.Model(&models.ReviewIssue{}).
		Select("severity, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", startTime, endTime).
		Group("severity").
		Scan(&severityRows)
	for _, row := range severityRows {
		stats.IssuesBySeverity[row.Severity] = row.Count
	}
	stats.CriticalIssues = stats.IssuesBySeverity["critical"]

	var worstRuns []models.ReviewRun
	s.db.Preload("VideoAsset").
		Where("created_at BETWEEN ? AND ? AND score IS NOT NULL", startTime, endTime).
		Order("score ASC").
		Limit(5).
		Find(&worstRuns)
	for _, run := range worstRuns {
		filename := ""
		if run.VideoAsset != nil {
			filename = run.VideoAsset.Filename
		}
		stats.WorstRuns = append(stats.WorstRuns, WorstRun{
			Filename:   filename,
			Score:      *run.Score,
			Verdict:    run.Verdict,
			IssueCount: run.IssueCount,
		})
	}

	return stats
}

func (s *DailyDigestService) sendDigest(digest *models.DailyDigest) error {
	message := buildDigestMessage(digest)
	return s.notifications.SendDigest(message)
}

// buildDigestMessage renders the stored digest row as an IM-friendly
// markdown summary.
func buildDigestMessage(digest *models.DailyDigest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 📊 AdSentry Daily Digest - %s\n\n", digest.ReportDate.Format("2006-01-02")))

	passRate := 0.0
	if decided := digest.PassedCount + digest.FailedCount; decided > 0 {
		passRate = float64(digest.PassedCount) / float64(decided) * 100
	}

	sb.WriteString("### Today\n")
	sb.WriteString(fmt.Sprintf("- 🎬 Videos reviewed: %d (%d runs)\n", digest.TotalVideos, digest.TotalRuns))
	sb.WriteString(fmt.Sprintf("- ✅ Passed %d / ❌ Failed %d / ⚠️ Errored %d\n", digest.PassedCount, digest.FailedCount, digest.ErroredCount))
	sb.WriteString(fmt.Sprintf("- 📈 Average score: %.1f | Pass rate: %.0f%%\n", digest.AverageScore, passRate))
	if digest.CriticalIssues > 0 {
		sb.WriteString(fmt.Sprintf("- ⛔ Critical issues: %d\n", digest.CriticalIssues))
	}
	sb.WriteString("\n")

	var byCategory map[string]int
	if err := json.Unmarshal([]byte(digest.IssuesByCategory), &byCategory); err == nil && len(byCategory) > 0 {
		sb.WriteString("### Issues by category\n")
		categories := make([]string, 0, len(byCategory))
		for category := range byCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", category, byCategory[category]))
		}
		sb.WriteString("\n")
	}

	var worst []WorstRun
	if err := json.Unmarshal([]byte(digest.WorstRuns), &worst); err == nil && len(worst) > 0 {
		sb.WriteString("### ⚠️ Lowest scores\n")
		for i, w := range worst {
			sb.WriteString(fmt.Sprintf("%d. %s - %.0f (%s, %d issues)\n", i+1, w.Filename, w.Score, w.Verdict, w.IssueCount))
		}
	}

	return sb.String()
}

func (s *DailyDigestService) List(page, pageSize int) ([]models.DailyDigest, int64, error) {
	var digests []models.DailyDigest
	var total int64

	s.db.Model(&models.DailyDigest{}).Count(&total)

	offset := (page - 1) * pageSize
	if err := s.db.Order("report_date DESC").Offset(offset).Limit(pageSize).Find(&digests).Error; err != nil {
		return nil, 0, err
	}

	return digests, total, nil
}

func (s *DailyDigestService) GetByID(id uint) (*models.DailyDigest, error) {
	var digest models.DailyDigest
	if err := s.db.First(&digest, id).Error; err != nil {
		return nil, err
	}
	return &digest, nil
}

func (s *DailyDigestService) ResendNotification(id uint) error {
	digest, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.sendDigest(digest); err != nil {
		digest.NotifyError = err.Error()
		s.db.Save(digest)
		return err
	}

	now := time.Now()
	digest.NotifiedAt = &now
	digest.NotifyError = ""
	s.db.Save(digest)

	return nil
}
