package services

import (
	"testing"
	"time"
)

func TestParseStatsRange_Defaults(t *testing.T) {
	start, end := parseStatsRange(&DashboardStatsRequest{})

	if !end.After(start) {
		t.Fatal("end should be after start")
	}

	span := end.Sub(start)
	if span < 6*24*time.Hour || span > 8*24*time.Hour {
		t.Errorf("default window should be about seven days, got %v", span)
	}
}

func TestParseStatsRange_ExplicitDates(t *testing.T) {
	start, end := parseStatsRange(&DashboardStatsRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})

	if start.Year() != 2024 || start.Month() != time.January || start.Day() != 1 {
		t.Errorf("start = %v, expected 2024-01-01", start)
	}
	// End date is inclusive: it extends to the last second of the day.
	if end.Day() != 31 || end.Hour() != 23 || end.Minute() != 59 {
		t.Errorf("end = %v, expected end of 2024-01-31", end)
	}
}

func TestParseStatsRange_InvalidDatesFallBack(t *testing.T) {
	start, end := parseStatsRange(&DashboardStatsRequest{
		StartDate: "not-a-date",
		EndDate:   "31/01/2024",
	})

	if !end.After(start) {
		t.Error("invalid dates should fall back to a sane window")
	}
	if time.Until(end) > time.Minute {
		t.Errorf("fallback end should be about now, got %v", end)
	}
}

func TestDashboardStats_Structure(t *testing.T) {
	stats := DashboardStats{
		AssetsIngested: 12,
		TotalRuns:      20,
		CompletedRuns:  15,
		FailedRuns:     3,
		AverageScore:   78.5,
		PassRate:       80,
	}

	if stats.AssetsIngested != 12 {
		t.Errorf("AssetsIngested = %d, expected 12", stats.AssetsIngested)
	}
	if stats.TotalRuns != 20 {
		t.Errorf("TotalRuns = %d, expected 20", stats.TotalRuns)
	}
	if stats.CompletedRuns != 15 {
		t.Errorf("CompletedRuns = %d, expected 15", stats.CompletedRuns)
	}
	if stats.FailedRuns != 3 {
		t.Errorf("FailedRuns = %d, expected 3", stats.FailedRuns)
	}
	if stats.AverageScore != 78.5 {
		t.Errorf("AverageScore = %f, expected 78.5", stats.AverageScore)
	}
	if stats.PassRate != 80 {
		t.Errorf("PassRate = %f, expected 80", stats.PassRate)
	}
}

func TestDashboardResponse_Structure(t *testing.T) {
	resp := DashboardResponse{
		Stats: DashboardStats{
			AssetsIngested: 5,
			TotalRuns:      8,
		},
		SourceStats: []SourceStats{
			{Source: "upload", AssetCount: 3},
			{Source: "watch", AssetCount: 2},
		},
		CategoryStats: []CategoryStats{
			{Category: "content_compliance", IssueCount: 4},
		},
		SeverityStats: []SeverityStats{
			{Severity: "high", IssueCount: 2},
		},
	}

	if resp.Stats.AssetsIngested != 5 {
		t.Errorf("Stats.AssetsIngested = %d, expected 5", resp.Stats.AssetsIngested)
	}
	if len(resp.SourceStats) != 2 {
		t.Errorf("SourceStats length = %d, expected 2", len(resp.SourceStats))
	}
	if resp.SourceStats[0].Source != "upload" {
		t.Errorf("SourceStats[0].Source = %q, expected upload", resp.SourceStats[0].Source)
	}
	if len(resp.CategoryStats) != 1 {
		t.Errorf("CategoryStats length = %d, expected 1", len(resp.CategoryStats))
	}
	if len(resp.SeverityStats) != 1 {
		t.Errorf("SeverityStats length = %d, expected 1", len(resp.SeverityStats))
	}
}
