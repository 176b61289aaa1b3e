package services

import (
	"strings"
	"testing"
	"time"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "bare object",
			content:  `{"summary": "ok", "issues": []}`,
			expected: `{"summary": "ok", "issues": []}`,
		},
		{
			name:     "json fence",
			content:  "```json\n{\"summary\": \"ok\"}\n```",
			expected: `{"summary": "ok"}`,
		},
		{
			name:     "plain fence",
			content:  "```\n{\"summary\": \"ok\"}\n```",
			expected: `{"summary": "ok"}`,
		},
		{
			name:     "prose around fence",
			content:  "Here is my analysis:\n```json\n{\"a\": 1}\n```\nLet me know if {more} is needed.",
			expected: `{"a": 1}`,
		},
		{
			name:     "prose around bare object",
			content:  "Sure! {\"a\": 1} Hope that helps.",
			expected: `{"a": 1}`,
		},
		{
			name:     "no json at all",
			content:  "I cannot analyze this video.",
			expected: "",
		},
		{
			name:     "empty",
			content:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSON(tt.content)
			if result != tt.expected {
				t.Errorf("extractJSON() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestParseReviewReply(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		reply, err := parseReviewReply("```json\n" + `{
			"summary": "One branding problem found.",
			"issues": [
				{"category": "brand_relevance", "severity": "high", "timestamp": 12.5,
				 "description": "Logo is never shown", "suggested_fix": "Add logo in the outro"}
			]
		}` + "\n```")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Summary != "One branding problem found." {
			t.Errorf("Summary = %q", reply.Summary)
		}
		if len(reply.Issues) != 1 {
			t.Fatalf("expected 1 issue, got %d", len(reply.Issues))
		}
		issue := reply.Issues[0]
		if issue.Category != "brand_relevance" || issue.Severity != "high" {
			t.Errorf("issue = %+v", issue)
		}
		if issue.Timestamp == nil || *issue.Timestamp != 12.5 {
			t.Errorf("Timestamp = %v, expected 12.5", issue.Timestamp)
		}
	})

	t.Run("null timestamp", func(t *testing.T) {
		reply, err := parseReviewReply(`{"summary": "s", "issues": [{"category": "video_quality", "severity": "low", "timestamp": null, "description": "d"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Issues[0].Timestamp != nil {
			t.Errorf("Timestamp should be nil, got %v", *reply.Issues[0].Timestamp)
		}
	})

	t.Run("clean video has empty issues", func(t *testing.T) {
		reply, err := parseReviewReply(`{"summary": "No problems found.", "issues": []}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reply.Issues) != 0 {
			t.Errorf("expected no issues, got %d", len(reply.Issues))
		}
	})

	t.Run("prose only is an error", func(t *testing.T) {
		if _, err := parseReviewReply("The video looks fine to me."); err == nil {
			t.Error("expected error for prose reply")
		}
	})

	t.Run("broken json is an error", func(t *testing.T) {
		if _, err := parseReviewReply(`{"summary": "s", "issues": [`); err == nil {
			t.Error("expected error for truncated JSON")
		}
	})

	t.Run("top level array is an error", func(t *testing.T) {
		if _, err := parseReviewReply(`[{"category": "video_quality"}]`); err == nil {
			t.Error("expected error for non-object reply")
		}
	})
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		known    bool
	}{
		{"low", "low", true},
		{"medium", "medium", true},
		{"high", "high", true},
		{"critical", "critical", true},
		{"HIGH", "high", true},
		{" Critical ", "critical", true},
		{"blocker", "medium", false},
		{"", "medium", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, known := normalizeSeverity(tt.input)
			if got != tt.expected || known != tt.known {
				t.Errorf("normalizeSeverity(%q) = (%q, %v), expected (%q, %v)",
					tt.input, got, known, tt.expected, tt.known)
			}
		})
	}
}

func TestCollectIssues(t *testing.T) {
	s := &AIReviewService{}
	enabled := map[string]bool{
		CategoryContentCompliance: true,
		CategoryBrandRelevance:    true,
	}

	ts := func(v float64) *float64 { return &v }
	reply := &reviewReply{
		Issues: []replyIssue{
			{Category: "content_compliance", Severity: "critical", Timestamp: ts(3), Description: "kept"},
			{Category: "Brand_Relevance", Severity: "LOW", Timestamp: nil, Description: "case folded"},
			{Category: "video_quality", Severity: "high", Description: "disabled category"},
			{Category: "pacing", Severity: "high", Description: "unknown category"},
			{Category: "content_compliance", Severity: "urgent", Description: "unknown severity"},
		},
	}

	outcome := &AIReviewOutcome{}
	s.collectIssues(outcome, reply, enabled, nil)

	if len(outcome.Issues) != 3 {
		t.Fatalf("expected 3 issues after filtering, got %d", len(outcome.Issues))
	}
	if outcome.Issues[0].Severity != "critical" {
		t.Errorf("issue[0].Severity = %q", outcome.Issues[0].Severity)
	}
	if outcome.Issues[1].Category != CategoryBrandRelevance {
		t.Errorf("issue[1].Category = %q, expected normalized name", outcome.Issues[1].Category)
	}
	if outcome.Issues[2].Severity != "medium" {
		t.Errorf("unknown severity should become medium, got %q", outcome.Issues[2].Severity)
	}
}

func TestCollectIssues_SnapsSheetTimestamps(t *testing.T) {
	s := &AIReviewService{}
	enabled := map[string]bool{CategoryVideoQuality: true}

	ts := 7.3
	reply := &reviewReply{
		Issues: []replyIssue{
			{Category: "video_quality", Severity: "low", Timestamp: &ts, Description: "blurry"},
		},
	}

	outcome := &AIReviewOutcome{}
	s.collectIssues(outcome, reply, enabled, []float64{0, 5, 10})

	if outcome.Issues[0].Timestamp == nil || *outcome.Issues[0].Timestamp != 5 {
		t.Errorf("Timestamp = %v, expected snap to 5", outcome.Issues[0].Timestamp)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.expected {
			t.Errorf("backoffDelay(%d) = %v, expected %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestBuildBatchPrompt(t *testing.T) {
	batch := PlanBatches([]float64{0, 5, 10}, 10, 4)[0]
	prompt := buildBatchPrompt("DOC", batch, 0, 1, 30)

	if !strings.HasPrefix(prompt, "DOC") {
		t.Error("prompt should start with the instruction document")
	}
	if !strings.Contains(prompt, "frame at 5.00s") {
		t.Error("prompt should list frame times")
	}
	if strings.Contains(prompt, "part 1 of 1") {
		t.Error("single batch should not mention parts")
	}

	multi := buildBatchPrompt("DOC", batch, 1, 3, 30)
	if !strings.Contains(multi, "part 2 of 3") {
		t.Error("multi batch prompt should mention which part this is")
	}
}

func TestCorrectivePrompt(t *testing.T) {
	raw := strings.Repeat("x", 500)
	result := correctivePrompt("ORIGINAL", raw)

	if !strings.Contains(result, "ORIGINAL") {
		t.Error("corrective prompt should keep the original instructions")
	}
	if !strings.Contains(result, "could not be parsed") {
		t.Error("corrective prompt should explain the failure")
	}
	if strings.Contains(result, raw) {
		t.Error("raw reply should be truncated")
	}
	if !strings.Contains(result, raw[:300]+"...") {
		t.Error("corrective prompt should include the truncated reply")
	}
}
