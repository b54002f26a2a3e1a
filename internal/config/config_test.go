package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.InDelta(t, 6.0, cfg.Synthesis.TargetSegmentDurationSecs, 0.001)
	assert.Equal(t, "", cfg.FFmpeg.FfmpegPath)
	assert.Equal(t, "", cfg.FFmpeg.FfprobePath)
	assert.Equal(t, 30*time.Second, cfg.FFmpeg.ProbeTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Registry.InactivityTTL)
	assert.Equal(t, 60*time.Second, cfg.Registry.SweepInterval)
	assert.EqualValues(t, 256*1024*1024, cfg.Cache.MaxBytes)
	assert.Equal(t, 4096, cfg.Cache.MaxEntries)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
synthesis:
  target_segment_duration_secs: 4

ffmpeg:
  ffprobe_path: "/usr/local/bin/ffprobe"
  probe_timeout: 10s

registry:
  inactivity_ttl: 2m
  sweep_interval: 30s

cache:
  max_bytes: 64MB
  max_entries: 1000
  ttl: 5m

logging:
  level: "debug"
  format: "text"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.InDelta(t, 4.0, cfg.Synthesis.TargetSegmentDurationSecs, 0.001)
	assert.Equal(t, "/usr/local/bin/ffprobe", cfg.FFmpeg.FfprobePath)
	assert.Equal(t, 10*time.Second, cfg.FFmpeg.ProbeTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Registry.InactivityTTL)
	assert.Equal(t, 30*time.Second, cfg.Registry.SweepInterval)
	assert.EqualValues(t, 64*1024*1024, cfg.Cache.MaxBytes)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HLSVOD_FFMPEG_FFPROBE_PATH", "/opt/ffprobe")
	t.Setenv("HLSVOD_REGISTRY_INACTIVITY_TTL", "90s")
	t.Setenv("HLSVOD_LOGGING_LEVEL", "warn")
	t.Setenv("HLSVOD_CACHE_MAX_ENTRIES", "500")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/opt/ffprobe", cfg.FFmpeg.FfprobePath)
	assert.Equal(t, 90*time.Second, cfg.Registry.InactivityTTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
registry:
  inactivity_ttl: 2m
logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	t.Setenv("HLSVOD_REGISTRY_INACTIVITY_TTL", "10m")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Registry.InactivityTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func validConfig() *Config {
	return &Config{
		Synthesis: SynthesisConfig{TargetSegmentDurationSecs: 6},
		FFmpeg:    FFmpegConfig{ProbeTimeout: 30 * time.Second},
		Registry:  RegistryConfig{InactivityTTL: 5 * time.Minute, SweepInterval: time.Minute},
		Cache:     CacheConfig{MaxBytes: 1 << 20, MaxEntries: 100, TTL: time.Minute},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidSegmentDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Synthesis.TargetSegmentDurationSecs = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target_segment_duration_secs")
}

func TestValidate_InvalidRegistryTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Registry.InactivityTTL = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inactivity_ttl")
}

func TestValidate_InvalidCacheBudgets(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.MaxBytes = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_bytes")

	cfg = validConfig()
	cfg.Cache.MaxEntries = 0
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_entries")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "invalid"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
synthesis:
  target_segment_duration_secs: "not a number"
  invalid yaml structure
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0o600)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
