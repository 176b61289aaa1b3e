package models

import "time"

// DailyDigest represents a daily review activity summary
type DailyDigest struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReportDate time.Time `gorm:"uniqueIndex;not null" json:"report_date"`

	TotalVideos    int     `json:"total_videos"`
	TotalRuns      int     `json:"total_runs"`
	PassedCount    int     `json:"passed_count"`
	FailedCount    int     `json:"failed_count"`
	ErroredCount   int     `json:"errored_count"`
	AverageScore   float64 `json:"average_score"`
	CriticalIssues int     `json:"critical_issues"`

	IssuesByCategory string `gorm:"type:text" json:"issues_by_category"` // JSON map category -> count
	IssuesBySeverity string `gorm:"type:text" json:"issues_by_severity"` // JSON map severity -> count
	WorstRuns        string `gorm:"type:text" json:"worst_runs"`         // JSON list of lowest scoring runs

	NotifiedAt  *time.Time `json:"notified_at"`
	NotifyError string     `gorm:"type:text" json:"notify_error"`

	CreatedAt time.Time `json:"created_at"`
}

func (DailyDigest) TableName() string { return "daily_digests" }
