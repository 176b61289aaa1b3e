package services

import (
	"context"
	"testing"
)

func TestIssuesFromOutcome(t *testing.T) {
	ts := 12.5
	outcome := &AIReviewOutcome{
		Summary: "two findings",
		Issues: []ParsedIssue{
			{
				Category:     CategoryContentCompliance,
				Severity:     "high",
				Timestamp:    &ts,
				Description:  "competitor logo visible",
				SuggestedFix: "blur the top-left corner",
			},
			{
				Category: CategoryVideoQuality,
				Severity: "low",
			},
		},
	}

	issues := issuesFromOutcome(7, outcome)
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}
	for i, issue := range issues {
		if issue.ReviewRunID != 7 {
			t.Errorf("issue %d: ReviewRunID = %d, want 7", i, issue.ReviewRunID)
		}
		if issue.Position != i+1 {
			t.Errorf("issue %d: Position = %d, want %d", i, issue.Position, i+1)
		}
		if issue.EvidenceStatus != "none" {
			t.Errorf("issue %d: EvidenceStatus = %q, want none", i, issue.EvidenceStatus)
		}
	}

	first := issues[0]
	if first.Category != CategoryContentCompliance || first.Severity != "high" {
		t.Errorf("first issue = %s/%s, want content_compliance/high", first.Category, first.Severity)
	}
	if first.Timestamp == nil || *first.Timestamp != 12.5 {
		t.Errorf("first issue timestamp = %v, want 12.5", first.Timestamp)
	}
	if issues[1].Timestamp != nil {
		t.Errorf("second issue timestamp = %v, want nil", issues[1].Timestamp)
	}
}

func TestIssuesFromOutcome_Empty(t *testing.T) {
	issues := issuesFromOutcome(1, &AIReviewOutcome{Summary: "clean"})
	if len(issues) != 0 {
		t.Errorf("got %d issues for a clean outcome, want 0", len(issues))
	}
}

func TestCheckAbort(t *testing.T) {
	if err := checkAbort(context.Background(), "before AI submission"); err != nil {
		t.Errorf("live context: got %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := checkAbort(ctx, "before evidence capture")
	if err == nil {
		t.Fatal("canceled context: got nil, want abort error")
	}
	if !IsKind(err, ErrKindAborted) {
		t.Errorf("canceled context: kind = %q, want %q", ErrorKind(err), ErrKindAborted)
	}
}

func TestTrackUntrack(t *testing.T) {
	s := &ReviewService{active: make(map[uint]context.CancelFunc)}

	_, cancel := context.WithCancel(context.Background())
	s.track(42, cancel)
	s.mu.Lock()
	_, ok := s.active[42]
	s.mu.Unlock()
	if !ok {
		t.Fatal("run 42 not tracked after track")
	}

	s.untrack(42)
	s.mu.Lock()
	_, ok = s.active[42]
	s.mu.Unlock()
	if ok {
		t.Error("run 42 still tracked after untrack")
	}
	cancel()
}
