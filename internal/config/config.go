// Package config provides configuration management for the origin server
// using Viper. It supports configuration from files, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultFfprobeTimeout        = 30 * time.Second
	defaultTargetSegmentSecs     = 6.0
	defaultRegistryTTL           = 5 * time.Minute
	defaultRegistrySweep         = 60 * time.Second
	defaultCacheMaxBytes         = 256 * 1024 * 1024 // 256MB
	defaultCacheMaxEntries       = 4096
	defaultCacheTTL              = 10 * time.Minute
	defaultAudioTranscodeTimeout = 30 * time.Second
)

// Config holds all configuration for the origin server library and its
// cmd/hlsvodctl CLI front end.
type Config struct {
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SynthesisConfig controls how playlists and segments are synthesized from
// a source's packet-level index (spec §4.H).
type SynthesisConfig struct {
	// TargetSegmentDurationSecs is the nominal media segment length used
	// when the index is split into segment boundaries.
	TargetSegmentDurationSecs float64 `mapstructure:"target_segment_duration_secs"`
}

// FFmpegConfig holds ffmpeg/ffprobe binary configuration used for source
// probing (internal/streamindex), demuxing (internal/demux), and audio
// transcoding (internal/audiotranscode).
type FFmpegConfig struct {
	FfmpegPath       string        `mapstructure:"ffmpeg_path"`  // Path to ffmpeg binary (empty = auto-detect on PATH)
	FfprobePath      string        `mapstructure:"ffprobe_path"` // Path to ffprobe binary (empty = auto-detect on PATH)
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	TranscodeTimeout time.Duration `mapstructure:"transcode_timeout"`
}

// RegistryConfig bounds the session registry's lifecycle (spec §4.J):
// how long an index may sit unused before the sweep goroutine evicts it,
// and how often that goroutine runs.
type RegistryConfig struct {
	InactivityTTL time.Duration `mapstructure:"inactivity_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CacheConfig bounds the rendered-segment byte cache (spec §4.K).
type CacheConfig struct {
	// MaxBytes is the total cached byte budget. Supports human-readable
	// values like "256MB", "1GB", or raw byte counts.
	MaxBytes   ByteSize      `mapstructure:"max_bytes"`
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with HLSVOD_ and use underscores
// for nesting. Example: HLSVOD_FFMPEG_FFPROBE_PATH=/usr/bin/ffprobe.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hlsvod")
		v.AddConfigPath("$HOME/.hlsvod")
	}

	v.SetEnvPrefix("HLSVOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	// Synthesis defaults
	v.SetDefault("synthesis.target_segment_duration_secs", defaultTargetSegmentSecs)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.ffmpeg_path", "")
	v.SetDefault("ffmpeg.ffprobe_path", "")
	v.SetDefault("ffmpeg.probe_timeout", defaultFfprobeTimeout)
	v.SetDefault("ffmpeg.transcode_timeout", defaultAudioTranscodeTimeout)

	// Registry defaults
	v.SetDefault("registry.inactivity_ttl", defaultRegistryTTL)
	v.SetDefault("registry.sweep_interval", defaultRegistrySweep)

	// Cache defaults
	v.SetDefault("cache.max_bytes", defaultCacheMaxBytes)
	v.SetDefault("cache.max_entries", defaultCacheMaxEntries)
	v.SetDefault("cache.ttl", defaultCacheTTL)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Synthesis.TargetSegmentDurationSecs <= 0 {
		return fmt.Errorf("synthesis.target_segment_duration_secs must be positive")
	}

	if c.Registry.InactivityTTL <= 0 {
		return fmt.Errorf("registry.inactivity_ttl must be positive")
	}
	if c.Registry.SweepInterval <= 0 {
		return fmt.Errorf("registry.sweep_interval must be positive")
	}

	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("cache.max_bytes must be positive")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
