package models

import (
	"time"

	"gorm.io/gorm"
)

// ReviewRun represents one AI review of a video asset
type ReviewRun struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	RunKey          string         `gorm:"uniqueIndex;size:36;not null" json:"run_key"`
	VideoAssetID    uint           `gorm:"index;not null" json:"video_asset_id"`
	VideoAsset      *VideoAsset    `gorm:"foreignKey:VideoAssetID" json:"video_asset,omitempty"`
	Status          string         `gorm:"size:20;default:pending;index" json:"status"` // pending, running, completed, failed, aborted
	Score           *float64       `json:"score"`
	Verdict         string         `gorm:"size:10" json:"verdict"` // pass, fail
	IssueCount      int            `json:"issue_count"`
	Provider        string         `gorm:"size:50" json:"provider"`
	Model           string         `gorm:"size:100" json:"model"`
	PromptVersion   string         `gorm:"size:20" json:"prompt_version"`
	RuleFingerprint string         `gorm:"size:64;index" json:"rule_fingerprint"`
	Summary         string         `gorm:"type:text" json:"summary"`
	ReportPath      string         `gorm:"size:500" json:"report_path"`
	ReportFormat    string         `gorm:"size:20" json:"report_format"`
	ErrorKind       string         `gorm:"size:50" json:"error_kind"` // configuration, ai_provider, ai_response, render, aborted
	ErrorMessage    string         `gorm:"type:text" json:"error_message"`
	RetryCount      int            `gorm:"default:0" json:"retry_count"`
	StartedAt       *time.Time     `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ReviewRun) TableName() string { return "review_runs" }
