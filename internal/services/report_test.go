package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/models"
)

func issueWith(severity string, ts *float64, position int) *models.ReviewIssue {
	return &models.ReviewIssue{
		Position:    position,
		Category:    CategoryContentCompliance,
		Severity:    severity,
		Timestamp:   ts,
		Description: "test issue",
	}
}

func TestComputeScore(t *testing.T) {
	ts := 1.0
	tests := []struct {
		name     string
		issues   []*models.ReviewIssue
		expected float64
	}{
		{
			name:     "clean video scores 100",
			issues:   nil,
			expected: 100,
		},
		{
			name: "one critical and two lows",
			issues: []*models.ReviewIssue{
				issueWith("critical", &ts, 1),
				issueWith("low", &ts, 2),
				issueWith("low", &ts, 3),
			},
			expected: 71,
		},
		{
			name: "all severities",
			issues: []*models.ReviewIssue{
				issueWith("low", &ts, 1),
				issueWith("medium", &ts, 2),
				issueWith("high", &ts, 3),
				issueWith("critical", &ts, 4),
			},
			expected: 58,
		},
		{
			name: "score floors at zero",
			issues: []*models.ReviewIssue{
				issueWith("critical", &ts, 1),
				issueWith("critical", &ts, 2),
				issueWith("critical", &ts, 3),
				issueWith("critical", &ts, 4),
				issueWith("critical", &ts, 5),
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeScore(tt.issues)
			if got != tt.expected {
				t.Errorf("ComputeScore() = %.0f, expected %.0f", got, tt.expected)
			}
		})
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold float64
		critical  bool
		expected  string
	}{
		{"above threshold passes", 80, 70, false, "pass"},
		{"at threshold passes", 70, 70, false, "pass"},
		{"below threshold fails", 69, 70, false, "fail"},
		{"critical fails regardless of score", 95, 70, true, "fail"},
		{"zero threshold with critical still fails", 100, 0, true, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Verdict(tt.score, tt.threshold, tt.critical)
			if got != tt.expected {
				t.Errorf("Verdict(%.0f, %.0f, %v) = %q, expected %q",
					tt.score, tt.threshold, tt.critical, got, tt.expected)
			}
		})
	}
}

func TestSortIssuesForDisplay(t *testing.T) {
	ts5, ts10, ts20 := 5.0, 10.0, 20.0
	issues := []*models.ReviewIssue{
		issueWith("low", &ts5, 1),
		issueWith("critical", &ts20, 2),
		issueWith("high", nil, 3),
		issueWith("high", &ts10, 4),
		issueWith("critical", nil, 5),
		issueWith("high", &ts10, 6),
	}

	SortIssuesForDisplay(issues)

	expectedPositions := []int{5, 2, 3, 4, 6, 1}
	for i, issue := range issues {
		if issue.Position != expectedPositions[i] {
			t.Errorf("sorted[%d].Position = %d, expected %d", i, issue.Position, expectedPositions[i])
		}
	}
}

func TestReportName(t *testing.T) {
	hash := "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
	if got := ReportName(hash, "run-key-1", "html"); got != "a1b2c3d4e5f6_run-key-1.html" {
		t.Errorf("ReportName() = %q", got)
	}
	if got := ReportName(hash, "run-key-1", "markdown"); got != "a1b2c3d4e5f6_run-key-1.md" {
		t.Errorf("ReportName() = %q", got)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "00:00"},
		{75.9, "01:15"},
		{3725, "01:02:05"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.seconds); got != tt.expected {
			t.Errorf("formatClock(%.1f) = %q, expected %q", tt.seconds, got, tt.expected)
		}
	}
}

func reportFixture(format string) (*ReportService, *ReviewReport) {
	cfg := config.DefaultConfig()
	cfg.Report.EmbedScreenshots = false
	svc := NewReportService(cfg)

	completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	asset := &models.VideoAsset{
		Filename:        "promo.mp4",
		ContentHash:     "a1b2c3d4e5f6a7b8c9d0",
		DurationSeconds: 30,
		Width:           1920,
		Height:          1080,
	}
	run := &models.ReviewRun{
		RunKey:       "11111111-2222-3333-4444-555555555555",
		Provider:     "gemini",
		Model:        "gemini-2.0-flash",
		ReportFormat: format,
		CompletedAt:  &completed,
	}
	ts := 12.5
	issues := []*models.ReviewIssue{
		{Position: 1, Category: CategoryBrandRelevance, Severity: "high", Timestamp: &ts,
			Description: "Logo never appears", SuggestedFix: "Show the logo in the outro",
			EvidenceStatus: "unavailable"},
		{Position: 2, Category: CategoryVideoQuality, Severity: "low",
			Description: "Slight banding in gradients", EvidenceStatus: "none"},
	}

	return svc, svc.Aggregate(asset, run, issues, "Branding needs work.")
}

func TestAggregate(t *testing.T) {
	_, report := reportFixture("html")

	if report.Score != 88 {
		t.Errorf("Score = %.0f, expected 88", report.Score)
	}
	if report.Verdict != "pass" {
		t.Errorf("Verdict = %q, expected pass", report.Verdict)
	}
	if report.Issues[0].Severity != "high" {
		t.Errorf("first issue severity = %q, expected high", report.Issues[0].Severity)
	}
	if report.GeneratedAt != *report.Run.CompletedAt {
		t.Error("GeneratedAt should come from the run completion time")
	}
}

func TestRenderHTML(t *testing.T) {
	svc, report := reportFixture("html")

	content, err := svc.Render(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html := string(content)
	for _, want := range []string{
		"promo.mp4",
		"Video Review Report",
		">88<",
		"PASS",
		"Logo never appears",
		"Show the logo in the outro",
		"Evidence unavailable",
		"2025-06-01 12:00:00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML report missing %q", want)
		}
	}
}

func TestRenderHTML_ByteIdentical(t *testing.T) {
	svc, report := reportFixture("html")

	first, err := svc.Render(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Render(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-rendering the same report produced different bytes")
	}
}

func TestRenderMarkdown(t *testing.T) {
	svc, report := reportFixture("markdown")

	content, err := svc.Render(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md := string(content)
	for _, want := range []string{
		"# AdSentry - Video Review Report",
		"**Score**: 88/100",
		"### Issue 1",
		"🔴 High",
		"evidence unavailable",
		"Brand Relevance",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown report missing %q", want)
		}
	}
}

func TestRenderMarkdown_CleanVideo(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := NewReportService(cfg)
	completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report := svc.Aggregate(
		&models.VideoAsset{Filename: "clean.mp4", ContentHash: "feedfacefeed"},
		&models.ReviewRun{RunKey: "k", ReportFormat: "markdown", CompletedAt: &completed},
		nil, "",
	)

	content, err := svc.Render(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(content), "No issues found") {
		t.Error("clean video report should state that no issues were found")
	}
	if report.Verdict != "pass" {
		t.Errorf("clean video verdict = %q, expected pass", report.Verdict)
	}
}
