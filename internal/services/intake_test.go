package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangang/adsentry/internal/config"
)

func intakeFixture(t *testing.T) (*IntakeService, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Video.SupportedFormats = []string{".mp4", ".mov", ".avi"}
	cfg.Video.MaxSizeMB = 1
	return &IntakeService{cfg: cfg}, t.TempDir()
}

func TestValidateFile(t *testing.T) {
	svc, dir := intakeFixture(t)

	tests := []struct {
		name    string
		file    string
		size    int
		wantErr error
	}{
		{"supported mp4", "promo.mp4", 1024, nil},
		{"uppercase extension", "PROMO.MP4", 1024, nil},
		{"supported mov", "clip.mov", 1024, nil},
		{"unsupported extension", "notes.txt", 10, ErrUnsupportedFormat},
		{"no extension", "video", 10, ErrUnsupportedFormat},
		{"over size limit", "big.mp4", 2 * 1024 * 1024, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, make([]byte, tt.size), 0644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			err := svc.ValidateFile(path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFile(%s) = %v, want nil", tt.file, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFile(%s) = %v, want %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFile_MissingFile(t *testing.T) {
	svc, dir := intakeFixture(t)

	err := svc.ValidateFile(filepath.Join(dir, "missing.mp4"))
	if !errors.Is(err, ErrUnreadableVideo) {
		t.Errorf("ValidateFile(missing) = %v, want ErrUnreadableVideo", err)
	}
}

func TestValidateFile_NoSizeLimit(t *testing.T) {
	svc, dir := intakeFixture(t)
	svc.cfg.Video.MaxSizeMB = 0

	path := filepath.Join(dir, "big.mp4")
	if err := os.WriteFile(path, make([]byte, 3*1024*1024), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := svc.ValidateFile(path); err != nil {
		t.Errorf("ValidateFile with MaxSizeMB=0 = %v, want nil", err)
	}
}

func TestComputeFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.mp4")
	if err := os.WriteFile(path, []byte("hello adsentry"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	h1, err := ComputeFileHash(path)
	if err != nil {
		t.Fatalf("ComputeFileHash failed: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	h2, err := ComputeFileHash(path)
	if err != nil {
		t.Fatalf("ComputeFileHash failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}

	other := filepath.Join(dir, "other.mp4")
	if err := os.WriteFile(other, []byte("different bytes"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	h3, err := ComputeFileHash(other)
	if err != nil {
		t.Fatalf("ComputeFileHash failed: %v", err)
	}
	if h1 == h3 {
		t.Error("different contents produced the same hash")
	}
}

func TestComputeFileHash_MissingFile(t *testing.T) {
	if _, err := ComputeFileHash(filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}
