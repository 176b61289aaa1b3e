package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("expected default provider gemini, got %s", cfg.AI.Provider)
	}
	if cfg.Review.PassThreshold != 70 {
		t.Errorf("expected default pass threshold 70, got %v", cfg.Review.PassThreshold)
	}
	if cfg.Video.SamplingMode != "uniform" {
		t.Errorf("expected default sampling mode uniform, got %s", cfg.Video.SamplingMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Report.Format != "html" {
		t.Errorf("expected default report format html, got %s", cfg.Report.Format)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
ai:
  provider: openai
  model: gpt-4o
review:
  pass_threshold: 85
  categories:
    video_quality:
      enabled: false
    brand_relevance:
      custom_prompt: "Check for the new logo."
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AI.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.AI.Provider)
	}
	if cfg.Review.PassThreshold != 85 {
		t.Errorf("expected threshold 85, got %v", cfg.Review.PassThreshold)
	}
	// Untouched sections keep defaults.
	if cfg.Video.MaxFrames != 20 {
		t.Errorf("expected default max_frames 20, got %d", cfg.Video.MaxFrames)
	}

	vq := cfg.Review.Categories["video_quality"]
	if vq.IsEnabled() {
		t.Error("video_quality should be disabled")
	}
	br := cfg.Review.Categories["brand_relevance"]
	if !br.IsEnabled() {
		t.Error("brand_relevance with only a custom prompt should stay enabled")
	}
	if br.CustomPrompt == "" {
		t.Error("brand_relevance custom prompt should be set")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("AI_MODEL", "claude-sonnet-4-20250514")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Provider != "anthropic" {
		t.Errorf("expected provider anthropic from env, got %s", cfg.AI.Provider)
	}
	if cfg.AI.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected model from env, got %s", cfg.AI.Model)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantAddr string
		wantPass string
		wantDB   int
	}{
		{"full", "redis://:secret@redis.example.com:6380/2", "redis.example.com:6380", "secret", 2},
		{"no auth", "redis://localhost:6379/0", "localhost:6379", "", 0},
		{"no db", "redis://:pw@host:6379", "host:6379", "pw", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.wantAddr {
				t.Errorf("addr = %q, want %q", cfg.Redis.Addr, tt.wantAddr)
			}
			if cfg.Redis.Password != tt.wantPass {
				t.Errorf("password = %q, want %q", cfg.Redis.Password, tt.wantPass)
			}
			if cfg.Redis.DB != tt.wantDB {
				t.Errorf("db = %d, want %d", cfg.Redis.DB, tt.wantDB)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"scene mode", func(c *Config) { c.Video.SamplingMode = "scene" }, false},
		{"bad sampling mode", func(c *Config) { c.Video.SamplingMode = "random" }, true},
		{"bad report format", func(c *Config) { c.Report.Format = "pdf" }, true},
		{"threshold too high", func(c *Config) { c.Review.PassThreshold = 101 }, true},
		{"negative threshold", func(c *Config) { c.Review.PassThreshold = -1 }, true},
		{"zero frame interval", func(c *Config) { c.Video.FrameInterval = 0 }, true},
		{"zero max frames", func(c *Config) { c.Video.MaxFrames = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
