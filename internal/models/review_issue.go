package models

import "time"

// ReviewIssue is a single finding extracted from the AI response. Position
// preserves the original response order for stable sorting.
type ReviewIssue struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReviewRunID    uint      `gorm:"index;not null" json:"review_run_id"`
	Position       int       `gorm:"not null" json:"position"`
	Category       string    `gorm:"size:50;not null" json:"category"`
	Severity       string    `gorm:"size:20;not null" json:"severity"` // low, medium, high, critical
	Timestamp      *float64  `json:"timestamp"`                        // seconds into the video, nil when not time-bound
	Description    string    `gorm:"type:text" json:"description"`
	SuggestedFix   string    `gorm:"type:text" json:"suggested_fix"`
	EvidencePath   string    `gorm:"size:500" json:"evidence_path"`
	EvidenceStatus string    `gorm:"size:20;default:none" json:"evidence_status"` // captured, none, unavailable, expired
	CreatedAt      time.Time `json:"created_at"`
}

func (ReviewIssue) TableName() string { return "review_issues" }
