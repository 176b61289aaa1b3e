package services

import (
	"testing"
	"time"
)

func TestRunListRequest_Defaults(t *testing.T) {
	req := &RunListRequest{}

	if req.Page != 0 || req.PageSize != 0 {
		t.Errorf("zero request should have no paging set, got page=%d size=%d", req.Page, req.PageSize)
	}
	if !req.StartDate.IsZero() || !req.EndDate.IsZero() {
		t.Error("zero request should have zero dates")
	}
	if req.MinScore != nil || req.MaxScore != nil {
		t.Error("zero request should have nil score bounds")
	}
}

func TestRunListRequest_WithFilters(t *testing.T) {
	now := time.Now()
	min := 50.0
	req := &RunListRequest{
		Page:       2,
		PageSize:   25,
		Status:     RunStatusCompleted,
		Verdict:    "fail",
		AssetID:    7,
		StartDate:  now.Add(-24 * time.Hour),
		EndDate:    now,
		SearchText: "promo",
		MinScore:   &min,
	}

	if req.Status != "completed" {
		t.Errorf("Status = %q, expected completed", req.Status)
	}
	if req.Verdict != "fail" {
		t.Errorf("Verdict = %q, expected fail", req.Verdict)
	}
	if req.AssetID != 7 {
		t.Errorf("AssetID = %d, expected 7", req.AssetID)
	}
	if req.MinScore == nil || *req.MinScore != 50.0 {
		t.Errorf("MinScore = %v, expected 50", req.MinScore)
	}
	if req.EndDate.Before(req.StartDate) {
		t.Error("EndDate should be after StartDate")
	}
}
