package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Email    EmailConfig    `yaml:"email"`
	AI       AIConfig       `yaml:"ai"`
	Review   ReviewConfig   `yaml:"review"`
	Video    VideoConfig    `yaml:"video"`
	Report   ReportConfig   `yaml:"report"`
	Paths    PathsConfig    `yaml:"paths"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// EmailConfig controls the watch scanner over the downloads directory.
// An external collaborator saves email attachments into paths.downloads;
// this service only scans that directory, it never speaks IMAP or POP3.
type EmailConfig struct {
	Enabled              bool              `yaml:"enabled"`
	CheckIntervalMinutes int               `yaml:"check_interval_minutes"`
	Filter               EmailFilterConfig `yaml:"filter"`
}

// EmailFilterConfig is recorded on intake for traceability. Sender and
// subject are matched against sidecar metadata when present.
type EmailFilterConfig struct {
	Sender          string `yaml:"sender"`
	SinceDate       string `yaml:"since_date"` // YYYY-MM-DD
	SubjectContains string `yaml:"subject_contains"`
}

type AIConfig struct {
	Provider              string  `yaml:"provider"` // gemini, openai, anthropic, ollama
	APIKey                string  `yaml:"api_key"`
	Model                 string  `yaml:"model"`
	BaseURL               string  `yaml:"base_url"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxRetries            int     `yaml:"max_retries"`
	RequestsPerMinute     int     `yaml:"requests_per_minute"`
	Temperature           float32 `yaml:"temperature"`
	MaxTokens             int     `yaml:"max_tokens"`
	VideoUpload           bool    `yaml:"video_upload"` // upload the full file when the provider supports it
}

type ReviewConfig struct {
	Categories    map[string]CategoryConfig `yaml:"categories"`
	CustomPrompt  string                    `yaml:"custom_prompt"`
	PassThreshold float64                   `yaml:"pass_threshold"`
}

// CategoryConfig tunes one review category. Enabled is a pointer so an
// entry that only sets check items or a custom prompt stays enabled.
type CategoryConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	CheckItems   []string `yaml:"check_items"` // replaces the built-in checklist when set
	CustomPrompt string   `yaml:"custom_prompt"`
}

// IsEnabled reports whether the category participates in reviews.
// Categories are enabled unless explicitly switched off.
func (c CategoryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type VideoConfig struct {
	FrameInterval    float64  `yaml:"frame_interval"` // seconds between sampled frames
	MaxFrames        int      `yaml:"max_frames"`
	SamplingMode     string   `yaml:"sampling_mode"` // uniform, scene
	GridCols         int      `yaml:"grid_cols"`     // contact sheet columns
	SupportedFormats []string `yaml:"supported_formats"`
	MaxSizeMB        int      `yaml:"max_size_mb"`
}

type ReportConfig struct {
	Format           string `yaml:"format"` // html, markdown
	EmbedScreenshots bool   `yaml:"embed_screenshots"`
	CompanyName      string `yaml:"company_name"`
}

type PathsConfig struct {
	Uploads     string `yaml:"uploads"`
	Downloads   string `yaml:"downloads"`
	Screenshots string `yaml:"screenshots"`
	Reports     string `yaml:"reports"`
}

type NotifyConfig struct {
	OnCompletion bool `yaml:"on_completion"`
	OnFailure    bool `yaml:"on_failure"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "adsentry.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		JWT: JWTConfig{
			Secret:     "adsentry-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Email: EmailConfig{
			Enabled:              false,
			CheckIntervalMinutes: 5,
		},
		AI: AIConfig{
			Provider:              "gemini",
			Model:                 "gemini-2.0-flash",
			RequestTimeoutSeconds: 120,
			MaxRetries:            3,
			RequestsPerMinute:     10,
			Temperature:           0.2,
			MaxTokens:             4096,
			VideoUpload:           true,
		},
		Review: ReviewConfig{
			PassThreshold: 70,
		},
		Video: VideoConfig{
			FrameInterval:    5,
			MaxFrames:        20,
			SamplingMode:     "uniform",
			GridCols:         4,
			SupportedFormats: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
			MaxSizeMB:        500,
		},
		Report: ReportConfig{
			Format:           "html",
			EmbedScreenshots: true,
			CompanyName:      "AdSentry",
		},
		Paths: PathsConfig{
			Uploads:     "data/uploads",
			Downloads:   "data/downloads",
			Screenshots: "data/screenshots",
			Reports:     "data/reports",
		},
		Notify: NotifyConfig{
			OnCompletion: true,
			OnFailure:    true,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.Provider = provider
	}
	if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		c.AI.APIKey = apiKey
	}
	if model := os.Getenv("AI_MODEL"); model != "" {
		c.AI.Model = model
	}
	if baseURL := os.Getenv("AI_BASE_URL"); baseURL != "" {
		c.AI.BaseURL = baseURL
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	// Remove redis:// prefix
	url := strings.TrimPrefix(redisURL, "redis://")

	// Extract password if present
	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	// Extract db number if present
	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	// Remaining is host:port
	c.Redis.Addr = url
}

// Validate rejects structurally invalid settings early. Category names
// are checked by the rule engine, which owns the category set.
func (c *Config) Validate() error {
	switch c.Video.SamplingMode {
	case "uniform", "scene":
	default:
		return fmt.Errorf("invalid video.sampling_mode %q (want uniform or scene)", c.Video.SamplingMode)
	}
	switch c.Report.Format {
	case "html", "markdown":
	default:
		return fmt.Errorf("invalid report.format %q (want html or markdown)", c.Report.Format)
	}
	if c.Review.PassThreshold < 0 || c.Review.PassThreshold > 100 {
		return fmt.Errorf("review.pass_threshold %v out of range [0,100]", c.Review.PassThreshold)
	}
	if c.Video.FrameInterval <= 0 {
		return fmt.Errorf("video.frame_interval must be positive, got %v", c.Video.FrameInterval)
	}
	if c.Video.MaxFrames < 1 {
		return fmt.Errorf("video.max_frames must be at least 1, got %d", c.Video.MaxFrames)
	}
	if c.Video.GridCols < 1 {
		return fmt.Errorf("video.grid_cols must be at least 1, got %d", c.Video.GridCols)
	}
	return nil
}

// EnsureDirs creates the working directories the pipeline writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Uploads, c.Paths.Downloads, c.Paths.Screenshots, c.Paths.Reports} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
