package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredVariables(t *testing.T) {
	// Clear all environment variables
	clearEnv := func() {
		os.Unsetenv("PORT")
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("PREMIUM_VIDEO_MODEL")
		os.Unsetenv("STANDARD_VIDEO_MODEL")
		os.Unsetenv("IMAGE_MODEL")
		os.Unsetenv("QUOTA_RPM_LIMIT")
		os.Unsetenv("QUOTA_DAILY_LIMIT")
		os.Unsetenv("DISABLED_TIERS")
		os.Unsetenv("CLIP_UNIT_SEC")
		os.Unsetenv("STORAGE_DIR")
		os.Unsetenv("S3_BUCKET")
		os.Unsetenv("S3_REGION")
		os.Unsetenv("AWS_ACCESS_KEY_ID")
		os.Unsetenv("AWS_SECRET_ACCESS_KEY")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("LOG_LEVEL")
	}

	t.Run("missing GEMINI_API_KEY returns error", func(t *testing.T) {
		clearEnv()

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGeminiAPIKeyRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "test-api-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "test-api-key", cfg.GeminiAPIKey)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "veo-3.0-generate-001", cfg.PremiumVideoModel)
	assert.Equal(t, "veo-2.0-generate-001", cfg.StandardVideoModel)
	assert.Equal(t, "gemini-2.0-flash-preview-image-generation", cfg.ImageModel)
	assert.Equal(t, 2, cfg.QuotaRPMLimit)
	assert.Equal(t, 50, cfg.QuotaDailyLimit)
	assert.Equal(t, 8, cfg.ClipUnitSec)
	assert.Equal(t, 720, cfg.Width)
	assert.Equal(t, 1280, cfg.Height)
	assert.Equal(t, 30, cfg.PollMaxChecks)
	assert.Equal(t, 10, cfg.PollIntervalSec)
	assert.Equal(t, 3, cfg.MaxTierAttempts)
	assert.Equal(t, 60, cfg.RetryDelaySec)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/tmp/clipforge", cfg.StorageDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DisabledTiers)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "custom-api-key")
	t.Setenv("PORT", "3000")
	t.Setenv("PREMIUM_VIDEO_MODEL", "veo-custom")
	t.Setenv("QUOTA_RPM_LIMIT", "6")
	t.Setenv("QUOTA_DAILY_LIMIT", "100")
	t.Setenv("DISABLED_TIERS", "premium_video,image_sequence")
	t.Setenv("CLIP_UNIT_SEC", "10")
	t.Setenv("STORAGE_DIR", "/custom/storage")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "veo-custom", cfg.PremiumVideoModel)
	assert.Equal(t, 6, cfg.QuotaRPMLimit)
	assert.Equal(t, 100, cfg.QuotaDailyLimit)
	assert.Equal(t, []string{"premium_video", "image_sequence"}, cfg.DisabledTiers)
	assert.Equal(t, 10, cfg.ClipUnitSec)
	assert.Equal(t, "/custom/storage", cfg.StorageDir)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidIntegerDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("CLIP_UNIT_SEC", "invalid")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:              8080,
		GeminiAPIKey:      "secret-key",
		PremiumVideoModel: "veo-3.0-generate-001",
		StorageDir:        "/tmp/test",
		QuotaRPMLimit:     2,
		QuotaDailyLimit:   50,
		S3Bucket:          "bucket",
		S3Region:          "region",
		LogFormat:         "json",
		LogLevel:          "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "veo-3.0-generate-001")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			GeminiAPIKey:    "key",
			ClipUnitSec:     8,
			QuotaRPMLimit:   2,
			QuotaDailyLimit: 50,
		}
		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		cfg := &Config{
			ClipUnitSec:     8,
			QuotaRPMLimit:   2,
			QuotaDailyLimit: 50,
		}
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrGeminiAPIKeyRequired)
	})

	t.Run("non-positive clip unit", func(t *testing.T) {
		cfg := &Config{
			GeminiAPIKey:    "key",
			ClipUnitSec:     0,
			QuotaRPMLimit:   2,
			QuotaDailyLimit: 50,
		}
		err := cfg.Validate()
		assert.Error(t, err)
	})

	t.Run("non-positive quota limits", func(t *testing.T) {
		cfg := &Config{
			GeminiAPIKey:    "key",
			ClipUnitSec:     8,
			QuotaRPMLimit:   0,
			QuotaDailyLimit: 50,
		}
		assert.Error(t, cfg.Validate())

		cfg.QuotaRPMLimit = 2
		cfg.QuotaDailyLimit = 0
		assert.Error(t, cfg.Validate())
	})
}
