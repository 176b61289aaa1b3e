package media

import (
	"math"
	"testing"
)

func TestUniformTimestamps(t *testing.T) {
	tests := []struct {
		name      string
		duration  float64
		interval  float64
		maxFrames int
		want      []float64
	}{
		{"under cap", 20, 5, 10, []float64{0, 5, 10, 15}},
		{"exact multiple excludes endpoint", 10, 5, 10, []float64{0, 5}},
		{"single frame", 3, 5, 10, []float64{0}},
		{"zero duration", 0, 5, 10, nil},
		{"zero interval", 20, 0, 10, nil},
		{"zero cap", 20, 5, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniformTimestamps(tt.duration, tt.interval, tt.maxFrames)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 0.0001 {
					t.Errorf("timestamp %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUniformTimestampsCapSpreadsEvenly(t *testing.T) {
	// 120s at 5s spacing would need 25 frames; the cap of 10 must widen
	// the spacing, not truncate coverage to the first 50 seconds.
	got := UniformTimestamps(120, 5, 10)

	if len(got) != 10 {
		t.Fatalf("expected 10 timestamps, got %d: %v", len(got), got)
	}
	if got[0] != 0 {
		t.Errorf("first timestamp = %v, want 0", got[0])
	}
	last := got[len(got)-1]
	if last < 100 {
		t.Errorf("last timestamp %v does not reach the tail of the video", last)
	}
	if last >= 120 {
		t.Errorf("last timestamp %v must stay below duration", last)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("timestamps not strictly increasing at %d: %v", i, got)
		}
	}
}

func TestSelectScenes(t *testing.T) {
	scenes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	t.Run("no thinning needed", func(t *testing.T) {
		got := SelectScenes(scenes, 20)
		if len(got) != len(scenes) {
			t.Fatalf("expected all %d scenes, got %d", len(scenes), len(got))
		}
		// Must be a copy, not an alias.
		got[0] = 99
		if scenes[0] == 99 {
			t.Error("SelectScenes returned an alias of its input")
		}
	})

	t.Run("thins to cap keeping endpoints", func(t *testing.T) {
		got := SelectScenes(scenes, 4)
		if len(got) != 4 {
			t.Fatalf("expected 4 scenes, got %d: %v", len(got), got)
		}
		if got[0] != 1 {
			t.Errorf("first = %v, want 1", got[0])
		}
		if got[len(got)-1] != 10 {
			t.Errorf("last = %v, want 10", got[len(got)-1])
		}
	})

	t.Run("single frame cap", func(t *testing.T) {
		got := SelectScenes(scenes, 1)
		if len(got) != 1 || got[0] != 1 {
			t.Errorf("expected [1], got %v", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := SelectScenes(nil, 5); got != nil {
			t.Errorf("expected nil for empty input, got %v", got)
		}
	})
}

func TestClampTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		ts       float64
		duration float64
		want     float64
	}{
		{"within range", 30, 120, 30},
		{"negative clamps to zero", -5, 120, 0},
		{"beyond end clamps to duration", 200, 120, 120},
		{"exactly duration", 120, 120, 120},
		{"zero", 0, 120, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampTimestamp(tt.ts, tt.duration); got != tt.want {
				t.Errorf("ClampTimestamp(%v, %v) = %v, want %v", tt.ts, tt.duration, got, tt.want)
			}
		})
	}
}
