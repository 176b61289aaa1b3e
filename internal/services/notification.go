package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/models"
)

// ReviewNotification is the message payload for a finished run, consumed
// by the IM adapters and the email channel.
type ReviewNotification struct {
	Filename     string
	Source       string
	Provider     string
	Model        string
	Score        float64
	Verdict      string
	IssueCount   int
	Summary      string
	EventType    string // completed, failed
	ErrorKind    string
	ErrorMessage string
	ReportPath   string
}

// NotificationService fans terminal run transitions out to the active IM
// bots and the email channel. It implements RunNotifier.
type NotificationService struct {
	db    *gorm.DB
	cfg   *config.Config
	email *EmailService
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	return &NotificationService{db: db, cfg: cfg, email: NewEmailService(db)}
}

func notificationFromRun(run *models.ReviewRun, asset *models.VideoAsset) *ReviewNotification {
	n := &ReviewNotification{
		Filename:     asset.Filename,
		Source:       asset.Source,
		Provider:     run.Provider,
		Model:        run.Model,
		Verdict:      run.Verdict,
		IssueCount:   run.IssueCount,
		Summary:      run.Summary,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		ReportPath:   run.ReportPath,
	}
	if run.Score != nil {
		n.Score = *run.Score
	}
	if run.Status == RunStatusCompleted {
		n.EventType = "completed"
	} else {
		n.EventType = "failed"
	}
	return n
}

// RunCompleted sends the verdict to every active bot and the configured
// email recipients.
func (s *NotificationService) RunCompleted(run *models.ReviewRun, asset *models.VideoAsset) {
	if !s.cfg.Notify.OnCompletion {
		return
	}
	n := notificationFromRun(run, asset)

	var bots []models.IMBot
	if err := s.db.Where("is_active = ?", true).Find(&bots).Error; err != nil {
		log.Printf("[Notification] Could not load bots: %v", err)
		return
	}

	for _, bot := range bots {
		adapter := getAdapter(bot.Type)
		if err := adapter.SendRichMessage(bot.Webhook, &bot, n); err != nil {
			log.Printf("[Notification] Failed to notify bot %s: %v", bot.Name, err)
		} else {
			log.Printf("[Notification] Notified bot %s (type: %s)", bot.Name, bot.Type)
		}
	}

	if err := s.email.SendReviewNotification(n); err != nil {
		log.Printf("[Notification] Email notification failed: %v", err)
	}
}

// RunFailed alerts the bots that opted into failure notifications.
func (s *NotificationService) RunFailed(run *models.ReviewRun, asset *models.VideoAsset) {
	if !s.cfg.Notify.OnFailure {
		return
	}
	n := notificationFromRun(run, asset)
	message := buildFailureMessage(n)

	var bots []models.IMBot
	if err := s.db.Where("is_active = ? AND failure_notify = ?", true, true).Find(&bots).Error; err != nil {
		log.Printf("[Notification] Could not load bots: %v", err)
		return
	}

	for _, bot := range bots {
		adapter := getAdapter(bot.Type)
		if err := adapter.SendTextMessage(bot.Webhook, &bot, message); err != nil {
			log.Printf("[Notification] Failed to alert bot %s: %v", bot.Name, err)
		}
	}
}

// SendDigest delivers a digest message to the bots that subscribed to it.
func (s *NotificationService) SendDigest(message string) error {
	var bots []models.IMBot
	if err := s.db.Where("is_active = ? AND digest_enabled = ?", true, true).Find(&bots).Error; err != nil {
		return err
	}
	if len(bots) == 0 {
		log.Println("[Notification] No bots subscribed to the digest")
		return nil
	}

	var lastErr error
	sent := 0
	for _, bot := range bots {
		adapter := getAdapter(bot.Type)
		if err := adapter.SendTextMessage(bot.Webhook, &bot, message); err != nil {
			log.Printf("[Notification] Digest to bot %s failed: %v", bot.Name, err)
			lastErr = err
		} else {
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

func buildFailureMessage(n *ReviewNotification) string {
	return fmt.Sprintf(`⚠️ Video review failed

Video: %s (source: %s)
Provider: %s
Error [%s]: %s`,
		n.Filename, n.Source, n.Provider, n.ErrorKind, n.ErrorMessage)
}
