// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrGeminiAPIKeyRequired is returned when GEMINI_API_KEY is not set.
	ErrGeminiAPIKeyRequired = errors.New("config: GEMINI_API_KEY is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Generative API settings
	GeminiAPIKey       string `env:"GEMINI_API_KEY, required" json:"-"` // Masked in JSON
	PremiumVideoModel  string `env:"PREMIUM_VIDEO_MODEL, default=veo-3.0-generate-001" json:"premium_video_model"`
	StandardVideoModel string `env:"STANDARD_VIDEO_MODEL, default=veo-2.0-generate-001" json:"standard_video_model"`
	ImageModel         string `env:"IMAGE_MODEL, default=gemini-2.0-flash-preview-image-generation" json:"image_model"`

	// Quota settings
	QuotaRPMLimit   int `env:"QUOTA_RPM_LIMIT, default=2" json:"quota_rpm_limit"`
	QuotaDailyLimit int `env:"QUOTA_DAILY_LIMIT, default=50" json:"quota_daily_limit"`

	// Tier settings
	DisabledTiers []string `env:"DISABLED_TIERS" json:"disabled_tiers,omitempty"`

	// Clip settings
	ClipUnitSec int `env:"CLIP_UNIT_SEC, default=8" json:"clip_unit_sec"`
	Width       int `env:"CLIP_WIDTH, default=720" json:"clip_width"`
	Height      int `env:"CLIP_HEIGHT, default=1280" json:"clip_height"`

	// Polling settings for long-running video operations
	PollMaxChecks   int `env:"POLL_MAX_CHECKS, default=30" json:"poll_max_checks"`
	PollIntervalSec int `env:"POLL_INTERVAL_SEC, default=10" json:"poll_interval_sec"`

	// Retry settings for same-tier attempts on transient failures
	MaxTierAttempts int `env:"MAX_TIER_ATTEMPTS, default=3" json:"max_tier_attempts"`
	RetryDelaySec   int `env:"RETRY_DELAY_SEC, default=60" json:"retry_delay_sec"`

	// Rendering settings
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Storage settings
	StorageDir string `env:"STORAGE_DIR, default=/tmp/clipforge" json:"storage_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "GEMINI_API_KEY") {
			return nil, ErrGeminiAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrGeminiAPIKeyRequired
	}
	if c.ClipUnitSec <= 0 {
		return fmt.Errorf("config: CLIP_UNIT_SEC must be positive, got %d", c.ClipUnitSec)
	}
	if c.QuotaRPMLimit <= 0 {
		return fmt.Errorf("config: QUOTA_RPM_LIMIT must be positive, got %d", c.QuotaRPMLimit)
	}
	if c.QuotaDailyLimit <= 0 {
		return fmt.Errorf("config: QUOTA_DAILY_LIMIT must be positive, got %d", c.QuotaDailyLimit)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, PremiumVideoModel: %s, StandardVideoModel: %s, ImageModel: %s, QuotaRPMLimit: %d, QuotaDailyLimit: %d, DisabledTiers: %v, ClipUnitSec: %d, StorageDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.PremiumVideoModel,
		c.StandardVideoModel,
		c.ImageModel,
		c.QuotaRPMLimit,
		c.QuotaDailyLimit,
		c.DisabledTiers,
		c.ClipUnitSec,
		c.StorageDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
