// Package config loads pathfollow settings from defaults, an optional
// .pathfollow.yaml file and PATHFOLLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Config is the top-level configuration struct for pathfollow.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Follow        FollowConfig        `mapstructure:"follow"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// FollowConfig holds history building knobs.
type FollowConfig struct {
	SimilarityThreshold int  `mapstructure:"similarity_threshold"`
	MaxCommits          int  `mapstructure:"max_commits"`
	CollapseMerges      bool `mapstructure:"collapse_merges"`
}

// CacheConfig sizes the git adapter caches.
type CacheConfig struct {
	DiffEntries int `mapstructure:"diff_entries"`
	BlobEntries int `mapstructure:"blob_entries"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Default values.
const (
	DefaultSimilarityThreshold = 80
	DefaultMaxCommits          = 0
	DefaultCollapseMerges      = true
	DefaultDiffEntries         = 256
	DefaultBlobEntries         = 1024
	DefaultLogLevel            = "info"
	DefaultLogJSON             = false
	DefaultOTLPEndpoint        = ""
	DefaultOTLPInsecure        = false
	DefaultSampleRatio         = 1.0
)

const maxSimilarity = 100

// Sentinel errors for configuration validation.
var (
	// ErrInvalidSimilarity indicates the similarity threshold is outside 1..100.
	ErrInvalidSimilarity = errors.New("follow.similarity_threshold must be between 1 and 100")
	// ErrInvalidMaxCommits indicates a negative commit window.
	ErrInvalidMaxCommits = errors.New("follow.max_commits must be non-negative")
	// ErrInvalidDiffEntries indicates the diff cache size is not positive.
	ErrInvalidDiffEntries = errors.New("cache.diff_entries must be positive")
	// ErrInvalidBlobEntries indicates the blob cache size is not positive.
	ErrInvalidBlobEntries = errors.New("cache.blob_entries must be positive")
	// ErrInvalidLogLevel indicates an unknown logging level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidSampleRatio indicates the sample ratio is outside 0..1.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Follow.SimilarityThreshold < 1 || c.Follow.SimilarityThreshold > maxSimilarity {
		return fmt.Errorf("%w: got %d", ErrInvalidSimilarity, c.Follow.SimilarityThreshold)
	}

	if c.Follow.MaxCommits < 0 {
		return ErrInvalidMaxCommits
	}

	if c.Cache.DiffEntries <= 0 {
		return ErrInvalidDiffEntries
	}

	if c.Cache.BlobEntries <= 0 {
		return ErrInvalidBlobEntries
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// ParseLevel converts a logging level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, name)
	}
}
