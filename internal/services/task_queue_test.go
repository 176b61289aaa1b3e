package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeReview_Constant(t *testing.T) {
	if TaskTypeReview != "review:video" {
		t.Errorf("TaskTypeReview = %q, expected %q", TaskTypeReview, "review:video")
	}
}

func TestReviewTask_RoundTrip(t *testing.T) {
	task := ReviewTask{RunID: 12, AssetID: 4, Trigger: "upload"}

	payload, err := json.Marshal(&task)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ReviewTask
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.RunID != 12 || decoded.AssetID != 4 || decoded.Trigger != "upload" {
		t.Errorf("decoded = %+v, expected original task back", decoded)
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_Close(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Close(); err != nil {
		t.Errorf("SyncQueue.Close() should return nil, got %v", err)
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()

	if err := queue.Enqueue(&ReviewTask{RunID: 1}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_EnqueueRunsProcessor(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got *ReviewTask
	done := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, task *ReviewTask) error {
		mu.Lock()
		got = task
		mu.Unlock()
		close(done)
		return nil
	})

	if err := queue.Enqueue(&ReviewTask{RunID: 9, Trigger: "manual"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.RunID != 9 || got.Trigger != "manual" {
		t.Errorf("processor received %+v, expected run 9 trigger manual", got)
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}
