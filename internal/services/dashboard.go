package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/huangang/adsentry/internal/models"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type DashboardStats struct {
	AssetsIngested int64   `json:"assets_ingested"`
	TotalRuns      int64   `json:"total_runs"`
	CompletedRuns  int64   `json:"completed_runs"`
	FailedRuns     int64   `json:"failed_runs"`
	AverageScore   float64 `json:"average_score"`
	PassRate       float64 `json:"pass_rate"`
}

type SourceStats struct {
	Source     string  `json:"source"`
	AssetCount int64   `json:"asset_count"`
	RunCount   int64   `json:"run_count"`
	AvgScore   float64 `json:"avg_score"`
}

type CategoryStats struct {
	Category   string `json:"category"`
	IssueCount int64  `json:"issue_count"`
}

type SeverityStats struct {
	Severity   string `json:"severity"`
	IssueCount int64  `json:"issue_count"`
}

type DashboardResponse struct {
	Stats         DashboardStats  `json:"stats"`
	SourceStats   []SourceStats   `json:"source_stats"`
	CategoryStats []CategoryStats `json:"category_stats"`
	SeverityStats []SeverityStats `json:"severity_stats"`
}

// parseStatsRange resolves the requested window, defaulting to the last
// seven days.
func parseStatsRange(req *DashboardStatsRequest) (time.Time, time.Time) {
	var startDate, endDate time.Time
	var err error

	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			startDate = time.Now().AddDate(0, 0, -7)
		}
	} else {
		startDate = time.Now().AddDate(0, 0, -7)
	}

	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			endDate = time.Now()
		}
		endDate = endDate.Add(24*time.Hour - time.Second)
	} else {
		endDate = time.Now()
	}

	return startDate, endDate
}

func (s *DashboardService) GetStats(req *DashboardStatsRequest) (*DashboardResponse, error) {
	startDate, endDate := parseStatsRange(req)

	var stats DashboardStats

	s.db.Model(&models.VideoAsset{}).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Count(&stats.AssetsIngested)

	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Count(&stats.TotalRuns)

	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND status = ?", startDate, endDate, RunStatusCompleted).
		Count(&stats.CompletedRuns)

	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND status = ?", startDate, endDate, RunStatusFailed).
		Count(&stats.FailedRuns)

	s.db.Model(&models.ReviewRun{}).
		Where("created_at BETWEEN ? AND ? AND score IS NOT NULL", startDate, endDate).
		Select("COALESCE(AVG(score), 0)").
		Scan(&stats.AverageScore)

	if stats.CompletedRuns > 0 {
		var passed int64
		s.db.Model(&models.ReviewRun{}).
			Where("created_at BETWEEN ? AND ? AND verdict = ?", startDate, endDate, VerdictPass).
			Count(&passed)
		stats.PassRate = float64(passed) / float64(stats.CompletedRuns) * 100
	}

	var sourceStats []SourceStats
	s.db.Model(&models.VideoAsset{}).
		Select("source, COUNT(*) as asset_count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("source").
		Order("asset_count DESC").
		Scan(&sourceStats)

	for i := range sourceStats {
		s.db.Model(&models.ReviewRun{}).
			Where("created_at BETWEEN ? AND ? AND video_asset_id IN (SELECT id FROM video_assets WHERE source = ?)",
				startDate, endDate, sourceStats[i].Source).
			Count(&sourceStats[i].RunCount)
		s.db.Model(&models.ReviewRun{}).
			Where("created_at BETWEEN ? AND ? AND score IS NOT NULL AND video_asset_id IN (SELECT id FROM video_assets WHERE source = ?)",
				startDate, endDate, sourceStats[i].Source).
			Select("COALESCE(AVG(score), 0)").
			Scan(&sourceStats[i].AvgScore)
	}

	var categoryStats []CategoryStats
	s.db.Model(&models.ReviewIssue{}).
		Select("category, COUNT(*) as issue_count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("category").
		Order("issue_count DESC").
		Scan(&categoryStats)

	var severityStats []SeverityStats
	s.db.Model(&models.ReviewIssue{}).
		Select("severity, COUNT(*) as issue_count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("severity").
		Order("issue_count DESC").
		Scan(&severityStats)

	return &DashboardResponse{
		Stats:         stats,
		SourceStats:   sourceStats,
		CategoryStats: categoryStats,
		SeverityStats: severityStats,
	}, nil
}
