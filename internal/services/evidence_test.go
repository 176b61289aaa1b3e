package services

import (
	"context"
	"testing"

	"github.com/huangang/adsentry/internal/models"
)

func TestEvidenceName(t *testing.T) {
	tests := []struct {
		name      string
		hash      string
		position  int
		timestamp float64
		expected  string
	}{
		{
			name:      "full hash is truncated",
			hash:      "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2",
			position:  1,
			timestamp: 12.5,
			expected:  "a1b2c3d4e5f6_issue001_12.50s.jpg",
		},
		{
			name:      "position is zero padded",
			hash:      "abcdef123456",
			position:  42,
			timestamp: 0,
			expected:  "abcdef123456_issue042_0.00s.jpg",
		},
		{
			name:      "short hash kept as is",
			hash:      "abc",
			position:  7,
			timestamp: 119.9,
			expected:  "abc_issue007_119.90s.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvidenceName(tt.hash, tt.position, tt.timestamp)
			if got != tt.expected {
				t.Errorf("EvidenceName() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestEvidenceName_Deterministic(t *testing.T) {
	a := EvidenceName("abcdef123456", 3, 7.25)
	b := EvidenceName("abcdef123456", 3, 7.25)
	if a != b {
		t.Errorf("same inputs produced different names: %q vs %q", a, b)
	}
}

func TestSeekTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		ts       float64
		duration float64
		expected float64
	}{
		{"mid video unchanged", 5, 120, 5},
		{"start unchanged", 0, 120, 0},
		{"exact end nudges back", 120, 120, 119.9},
		{"past end nudges back", 150, 120, 119.9},
		{"tiny video floors at zero", 0.05, 0.05, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seekTimestamp(tt.ts, tt.duration)
			if got != tt.expected {
				t.Errorf("seekTimestamp(%.2f, %.2f) = %.2f, expected %.2f", tt.ts, tt.duration, got, tt.expected)
			}
		})
	}
}

func TestCapture_NoTimestampMarkedNone(t *testing.T) {
	s := &EvidenceService{}
	asset := &models.VideoAsset{ContentHash: "abcdef123456", DurationSeconds: 30}
	issues := []*models.ReviewIssue{
		{Position: 1, Category: "brand_relevance"},
		{Position: 2, Category: "content_compliance"},
	}

	if err := s.Capture(context.Background(), asset, issues); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, issue := range issues {
		if issue.EvidenceStatus != "none" {
			t.Errorf("issue[%d].EvidenceStatus = %q, expected none", i, issue.EvidenceStatus)
		}
		if issue.EvidencePath != "" {
			t.Errorf("issue[%d] should have no evidence path", i)
		}
	}
}

func TestCapture_CanceledContext(t *testing.T) {
	s := &EvidenceService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := 5.0
	issues := []*models.ReviewIssue{{Position: 1, Timestamp: &ts}}
	err := s.Capture(ctx, &models.VideoAsset{DurationSeconds: 30}, issues)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !IsKind(err, ErrKindAborted) {
		t.Errorf("error kind = %q, expected aborted", ErrorKind(err))
	}
}
