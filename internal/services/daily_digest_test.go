package services

import (
	"strings"
	"testing"
	"time"

	"github.com/huangang/adsentry/internal/models"
)

func TestBuildDigestMessage(t *testing.T) {
	digest := &models.DailyDigest{
		ReportDate:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		TotalVideos:      4,
		TotalRuns:        6,
		PassedCount:      3,
		FailedCount:      1,
		ErroredCount:     2,
		AverageScore:     81.5,
		CriticalIssues:   1,
		IssuesByCategory: `{"video_quality":2,"content_compliance":5}`,
		IssuesBySeverity: `{"high":3,"critical":1}`,
		WorstRuns:        `[{"filename":"teaser.mp4","score":40,"verdict":"fail","issue_count":7}]`,
	}

	msg := buildDigestMessage(digest)

	for _, expected := range []string{
		"2026-03-14",
		"Videos reviewed: 4 (6 runs)",
		"Passed 3 / ❌ Failed 1 / ⚠️ Errored 2",
		"Average score: 81.5",
		"Pass rate: 75%",
		"Critical issues: 1",
		"content_compliance: 5",
		"video_quality: 2",
		"teaser.mp4 - 40 (fail, 7 issues)",
	} {
		if !strings.Contains(msg, expected) {
			t.Errorf("digest message should contain %q, got:\n%s", expected, msg)
		}
	}

	// Categories render alphabetically so consecutive digests diff cleanly.
	if strings.Index(msg, "content_compliance") > strings.Index(msg, "video_quality") {
		t.Error("categories should be sorted alphabetically")
	}
}

func TestBuildDigestMessage_QuietDay(t *testing.T) {
	digest := &models.DailyDigest{
		ReportDate:       time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		IssuesByCategory: `{}`,
		IssuesBySeverity: `{}`,
		WorstRuns:        `[]`,
	}

	msg := buildDigestMessage(digest)

	if !strings.Contains(msg, "Videos reviewed: 0") {
		t.Errorf("quiet day should still render counts, got:\n%s", msg)
	}
	if strings.Contains(msg, "Issues by category") {
		t.Error("empty category map should not render a section")
	}
	if strings.Contains(msg, "Lowest scores") {
		t.Error("no worst runs should not render a section")
	}
	if strings.Contains(msg, "Critical issues") {
		t.Error("zero critical issues should not render the line")
	}
}

func TestDigestStats_Structure(t *testing.T) {
	stats := DigestStats{
		TotalVideos:      10,
		TotalRuns:        12,
		PassedCount:      8,
		FailedCount:      2,
		IssuesByCategory: map[string]int{"brand_relevance": 3},
		WorstRuns:        []WorstRun{{Filename: "a.mp4", Score: 55}},
	}

	if stats.TotalVideos != 10 || stats.TotalRuns != 12 {
		t.Errorf("counts not set: %+v", stats)
	}
	if stats.IssuesByCategory["brand_relevance"] != 3 {
		t.Error("category map should carry counts")
	}
	if len(stats.WorstRuns) != 1 || stats.WorstRuns[0].Filename != "a.mp4" {
		t.Error("worst runs should carry entries")
	}
}
