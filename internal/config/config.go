package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alevsk/mpd-scope/internal/analysis"
	"github.com/alevsk/mpd-scope/internal/compliance"
	"github.com/alevsk/mpd-scope/internal/enhanced"
	"github.com/alevsk/mpd-scope/internal/rules"
	"github.com/alevsk/mpd-scope/internal/segments"
)

const (
	MPDScopeConfigPathEnvVar = "MPD_SCOPE_CONFIG_PATH" // Environment variable for config path
)

// Config holds all configuration for the application
type Config struct {
	// Debug enables verbose logging and additional debug information
	Debug bool `mapstructure:"debug"`

	// Log configures the optional rotated log file
	Log Log `mapstructure:"log"`

	// Server configuration
	Server struct {
		Host     string        `mapstructure:"host"`
		Port     int           `mapstructure:"port"`
		Timeout  time.Duration `mapstructure:"timeout"`
		LogLevel string        `mapstructure:"log_level"`
	} `mapstructure:"server"`

	// Analysis thresholds and tolerances
	Analysis Analysis `mapstructure:"analysis"`
}

// Log holds the log file rotation settings. No file is written when File is empty.
type Log struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Analysis holds the thresholds shared by the rule engine, the validators
// and the segment runtime checks.
type Analysis struct {
	MinSegmentDuration       float64    `mapstructure:"min_segment_duration"`
	MaxSegmentDuration       float64    `mapstructure:"max_segment_duration"`
	MaxDownloadTime          float64    `mapstructure:"max_download_time"`
	MaxDownloadRatio         float64    `mapstructure:"max_download_ratio"`
	CumulativeDriftThreshold float64    `mapstructure:"cumulative_drift_threshold"`
	ValidateVOD              bool       `mapstructure:"validate_vod"`
	DisabledRules            []string   `mapstructure:"disabled_rules"`
	Tolerances               Tolerances `mapstructure:"tolerances"`
}

// Tolerances are expressed in the units operators think in: percent and
// milliseconds.
type Tolerances struct {
	BandwidthPercent   float64 `mapstructure:"bandwidth_percent"`
	TimingMs           float64 `mapstructure:"timing_ms"`
	PeriodStartMs      float64 `mapstructure:"period_start_ms"`
	BufferDepthPercent float64 `mapstructure:"buffer_depth_percent"`
	LadderPercent      float64 `mapstructure:"ladder_percent"`
}

// RuleConfig projects the analysis section onto the baseline rule engine.
func (a Analysis) RuleConfig() rules.Config {
	return rules.Config{
		MinSegmentDuration: a.MinSegmentDuration,
		MaxSegmentDuration: a.MaxSegmentDuration,
		DisabledRules:      a.DisabledRules,
	}
}

// ComplianceOptions projects the tolerances onto the deep validator.
func (a Analysis) ComplianceOptions() compliance.Options {
	return compliance.Options{
		BandwidthTolerance:   a.Tolerances.BandwidthPercent / 100,
		TimingTolerance:      a.Tolerances.TimingMs / 1000,
		PeriodStartTolerance: a.Tolerances.PeriodStartMs / 1000,
		BufferDepthTolerance: a.Tolerances.BufferDepthPercent / 100,
		LadderTolerance:      a.Tolerances.LadderPercent / 100,
	}
}

// EnhancedOptions projects the analysis section onto the enhanced comparison.
func (a Analysis) EnhancedOptions() enhanced.Options {
	return enhanced.Options{
		Compliance:     a.ComplianceOptions(),
		DriftThreshold: a.CumulativeDriftThreshold,
	}
}

// SegmentConfig projects the analysis section onto the segment runtime checks.
func (a Analysis) SegmentConfig() segments.Config {
	return segments.Config{
		MinSegmentDuration: a.MinSegmentDuration,
		MaxSegmentDuration: a.MaxSegmentDuration,
		MaxDownloadRatio:   a.MaxDownloadRatio,
		MaxDownloadTime:    a.MaxDownloadTime,
		ValidateVOD:        a.ValidateVOD,
	}
}

// AnalysisOptions projects the analysis section onto the analyzer.
func (a Analysis) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Rules:    a.RuleConfig(),
		Enhanced: a.EnhancedOptions(),
	}
}

// Load initializes and returns the configuration from all sources:
// 1. Command-line flags (highest priority)
// 2. Environment variables (prefixed with MPD_SCOPE_)
// 3. Configuration file (lowest priority)
func Load(configPath string) (*Config, error) {
	// Check for environment variable config path if not explicitly provided
	if configPath == "" {
		if envPath := os.Getenv(MPDScopeConfigPathEnvVar); envPath != "" {
			if _, err := os.Stat(envPath); os.IsNotExist(err) {
				return nil, fmt.Errorf("config file specified in %s not found: %s", MPDScopeConfigPathEnvVar, envPath)
			}
			configPath = envPath
		}
	} else {
		// Verify explicitly provided config file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	}
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yml in the current directory
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix("MPD_SCOPE")
	v.AutomaticEnv()
	// Replace dots with underscores in env vars
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		} else if configPath != "" {
			// Only error if config file was explicitly specified
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
		// If no config file was specified, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects thresholds no analysis could run with.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.MinSegmentDuration < 0 || a.MaxSegmentDuration < 0 {
		return fmt.Errorf("segment duration bounds must not be negative")
	}
	if a.MaxSegmentDuration > 0 && a.MinSegmentDuration > a.MaxSegmentDuration {
		return fmt.Errorf("min_segment_duration %v exceeds max_segment_duration %v", a.MinSegmentDuration, a.MaxSegmentDuration)
	}
	if a.MaxDownloadTime < 0 || a.MaxDownloadRatio < 0 || a.CumulativeDriftThreshold < 0 {
		return fmt.Errorf("download and drift thresholds must not be negative")
	}
	return nil
}

// Default returns the configuration used when no file or environment is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Log defaults
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.log_level", "info")

	// Analysis defaults
	v.SetDefault("analysis.min_segment_duration", 1.0)
	v.SetDefault("analysis.max_segment_duration", 10.0)
	v.SetDefault("analysis.max_download_time", 0.0)
	v.SetDefault("analysis.max_download_ratio", 1.0)
	v.SetDefault("analysis.cumulative_drift_threshold", 0.1)
	v.SetDefault("analysis.validate_vod", false)
	v.SetDefault("analysis.disabled_rules", []string{})
	v.SetDefault("analysis.tolerances.bandwidth_percent", 1.0)
	v.SetDefault("analysis.tolerances.timing_ms", 1.0)
	v.SetDefault("analysis.tolerances.period_start_ms", 100.0)
	v.SetDefault("analysis.tolerances.buffer_depth_percent", 10.0)
	v.SetDefault("analysis.tolerances.ladder_percent", 10.0)
}
