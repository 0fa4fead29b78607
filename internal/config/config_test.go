package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pathfollow/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pathfollow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
follow:
  similarity_threshold: 60
  max_commits: 500
  collapse_merges: false
cache:
  diff_entries: 16
  blob_entries: 32
logging:
  level: debug
  json: true
observability:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  sample_ratio: 0.25
`))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Follow.SimilarityThreshold)
	assert.Equal(t, 500, cfg.Follow.MaxCommits)
	assert.False(t, cfg.Follow.CollapseMerges)
	assert.Equal(t, 16, cfg.Cache.DiffEntries)
	assert.Equal(t, 32, cfg.Cache.BlobEntries)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTLPEndpoint)
	assert.True(t, cfg.Observability.OTLPInsecure)
	assert.InDelta(t, 0.25, cfg.Observability.SampleRatio, 1e-9)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "follow:\n  max_commits: 10\n"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Follow.MaxCommits)
	assert.Equal(t, config.DefaultSimilarityThreshold, cfg.Follow.SimilarityThreshold)
	assert.True(t, cfg.Follow.CollapseMerges)
	assert.Equal(t, config.DefaultBlobEntries, cfg.Cache.BlobEntries)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "follow: [unclosed"))
	require.Error(t, err)
}

func TestLoadConfig_InvalidValue_ReturnsSentinel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "follow:\n  similarity_threshold: 101\n"))
	require.ErrorIs(t, err, config.ErrInvalidSimilarity)
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_EnvOverride_NestedKey(t *testing.T) {
	t.Setenv("PATHFOLLOW_FOLLOW_SIMILARITY_THRESHOLD", "55")
	t.Setenv("PATHFOLLOW_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 55, cfg.Follow.SimilarityThreshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"defaults", func(*config.Config) {}, nil},
		{"zero similarity", func(c *config.Config) { c.Follow.SimilarityThreshold = 0 }, config.ErrInvalidSimilarity},
		{"negative window", func(c *config.Config) { c.Follow.MaxCommits = -1 }, config.ErrInvalidMaxCommits},
		{"no diff cache", func(c *config.Config) { c.Cache.DiffEntries = 0 }, config.ErrInvalidDiffEntries},
		{"no blob cache", func(c *config.Config) { c.Cache.BlobEntries = -5 }, config.ErrInvalidBlobEntries},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"bad ratio", func(c *config.Config) { c.Observability.SampleRatio = 1.5 }, config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := config.ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
