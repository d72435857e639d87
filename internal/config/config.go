// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrProcessEndpointRequired is returned when PROCESS_ENDPOINT is not set.
	ErrProcessEndpointRequired = errors.New("config: PROCESS_ENDPOINT is required")
	// ErrProcessTokenRequired is returned when PROCESS_ENDPOINT_TOKEN is not set.
	ErrProcessTokenRequired = errors.New("config: PROCESS_ENDPOINT_TOKEN is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Clip-generation endpoint settings
	ProcessEndpoint      string `env:"PROCESS_ENDPOINT, required" json:"process_endpoint"`
	ProcessEndpointToken string `env:"PROCESS_ENDPOINT_TOKEN, required" json:"-"` // Masked in JSON

	// Database settings. An empty path selects in-memory stores.
	DBPath string `env:"DB_PATH" json:"db_path,omitempty"`

	// Workflow settings
	Workers        int           `env:"WORKERS, default=4" json:"workers"`
	QueueSize      int           `env:"QUEUE_SIZE, default=64" json:"queue_size"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL, default=1m" json:"sweep_interval"`
	StuckThreshold time.Duration `env:"STUCK_THRESHOLD, default=30m" json:"stuck_threshold"`

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
		if strings.Contains(err.Error(), "PROCESS_ENDPOINT_TOKEN") {
			return nil, ErrProcessTokenRequired
		}
		if strings.Contains(err.Error(), "PROCESS_ENDPOINT") {
			return nil, ErrProcessEndpointRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.ProcessEndpoint == "" {
		return ErrProcessEndpointRequired
	}
	if c.ProcessEndpointToken == "" {
		return ErrProcessTokenRequired
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
		"Config{Port: %d, ProcessEndpoint: %s, DBPath: %s, Workers: %d, QueueSize: %d, SweepInterval: %s, StuckThreshold: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ProcessEndpoint,
		c.DBPath,
		c.Workers,
		c.QueueSize,
		c.SweepInterval,
		c.StuckThreshold,
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
