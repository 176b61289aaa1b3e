package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestAgedFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "abc123_run1.html", 100*24*time.Hour)
	writeAgedFile(t, dir, "def456_run2.html", time.Hour)
	writeAgedFile(t, dir, "notes.txt", 100*24*time.Hour)

	cutoff := time.Now().AddDate(0, 0, -90)
	aged := agedFiles(dir, cutoff, ".html", ".md")

	if len(aged) != 1 {
		t.Fatalf("aged files = %v, want exactly the old report", aged)
	}
	if aged[0] != old {
		t.Errorf("aged[0] = %s, want %s", aged[0], old)
	}
}

func TestAgedFiles_MissingDirectory(t *testing.T) {
	aged := agedFiles(filepath.Join(t.TempDir(), "nope"), time.Now(), ".jpg")
	if aged != nil {
		t.Errorf("expected nil for missing directory, got %v", aged)
	}
}

func TestAgedFiles_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive.html")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(sub, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	if aged := agedFiles(dir, time.Now(), ".html"); len(aged) != 0 {
		t.Errorf("directories should never be swept, got %v", aged)
	}
}

func TestHasExtension(t *testing.T) {
	tests := []struct {
		name       string
		extensions []string
		want       bool
	}{
		{"report.html", []string{".html", ".md"}, true},
		{"report.MD", []string{".html", ".md"}, true},
		{"frame.jpg", []string{".jpg"}, true},
		{"frame.jpeg", []string{".jpg"}, false},
		{"noext", []string{".jpg"}, false},
	}

	for _, tt := range tests {
		if got := hasExtension(tt.name, tt.extensions); got != tt.want {
			t.Errorf("hasExtension(%q, %v) = %v, want %v", tt.name, tt.extensions, got, tt.want)
		}
	}
}
