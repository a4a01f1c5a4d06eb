// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/mediaforge-api/internal/cleanup"
)

// Static errors for configuration validation.
var (
	// ErrFFmpegPathRequired is returned when FFMPEG_PATH is blank.
	ErrFFmpegPathRequired = errors.New("config: FFMPEG_PATH must not be empty")
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidUploadLimit is returned when MAX_UPLOAD_BYTES is not positive.
	ErrInvalidUploadLimit = errors.New("config: MAX_UPLOAD_BYTES must be positive")
	// ErrNegativeDuration is returned when a duration setting is negative.
	ErrNegativeDuration = errors.New("config: durations must not be negative")
	// ErrInvalidSchedule is returned when CLEANUP_SCHEDULE does not parse.
	ErrInvalidSchedule = errors.New("config: invalid CLEANUP_SCHEDULE")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int   `env:"PORT, default=8080" json:"port"`
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES, default=104857600" json:"max_upload_bytes"`

	// FFmpeg settings
	FFmpegPath      string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFmpegLogOutput bool          `env:"FFMPEG_LOG_OUTPUT, default=false" json:"ffmpeg_log_output"`
	FFmpegOverwrite bool          `env:"FFMPEG_OVERWRITE, default=true" json:"ffmpeg_overwrite"`
	CommandTimeout  time.Duration `env:"COMMAND_TIMEOUT, default=30m" json:"command_timeout"` // 0 disables

	// Storage settings
	WorkDir string `env:"WORK_DIR, default=/tmp/mediaforge" json:"work_dir"`

	// Cleanup settings
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE, default=@every 15m" json:"cleanup_schedule"`
	CleanupMaxAge   time.Duration `env:"CLEANUP_MAX_AGE, default=1h" json:"cleanup_max_age"`
	JobRetention    time.Duration `env:"JOB_RETENTION, default=24h" json:"job_retention"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
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

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpegPath) == "" {
		return ErrFFmpegPathRequired
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxUploadBytes <= 0 {
		return ErrInvalidUploadLimit
	}
	for name, d := range map[string]time.Duration{
		"COMMAND_TIMEOUT": c.CommandTimeout,
		"CLEANUP_MAX_AGE": c.CleanupMaxAge,
		"JOB_RETENTION":   c.JobRetention,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s=%s", ErrNegativeDuration, name, d)
		}
	}
	if err := cleanup.ValidateSchedule(c.CleanupSchedule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, MaxUploadBytes: %d, FFmpegPath: %s, FFmpegLogOutput: %t, CommandTimeout: %s, WorkDir: %s, CleanupSchedule: %s, CleanupMaxAge: %s, JobRetention: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, AWSAccessKeyID: %s, AWSSecretAccessKey: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.MaxUploadBytes,
		c.FFmpegPath,
		c.FFmpegLogOutput,
		c.CommandTimeout,
		c.WorkDir,
		c.CleanupSchedule,
		c.CleanupMaxAge,
		c.JobRetention,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		mask(c.AWSAccessKeyID),
		mask(c.AWSSecretAccessKey),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
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
