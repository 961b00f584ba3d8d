// Package config loads audit configuration from .sca/config.yaml via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"sca/internal/paths"
)

// Config represents the complete audit configuration
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Scan         ScanConfig         `json:"scan" mapstructure:"scan"`
	Cache        CacheConfig        `json:"cache" mapstructure:"cache"`
	Orchestrator OrchestratorConfig `json:"orchestrator" mapstructure:"orchestrator"`
	Logging      LoggingConfig      `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls which files the fingerprint index tracks
type ScanConfig struct {
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	Excludes         []string `json:"excludes" mapstructure:"excludes"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	PatternTtlSeconds  int `json:"patternTtlSeconds" mapstructure:"patternTtlSeconds"`
	CompressAboveBytes int `json:"compressAboveBytes" mapstructure:"compressAboveBytes"`
}

// OrchestratorConfig contains concurrency limits for tool execution
type OrchestratorConfig struct {
	MaxWorkers    int `json:"maxWorkers" mapstructure:"maxWorkers"`
	ToolTimeoutMs int `json:"toolTimeoutMs" mapstructure:"toolTimeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		ProjectRoot: ".",
		Scan: ScanConfig{
			Extensions:       []string{".go"},
			Excludes:         []string{},
			MaxFileSizeBytes: 1000000,
		},
		Cache: CacheConfig{
			PatternTtlSeconds:  3600,
			CompressAboveBytes: 4096,
		},
		Orchestrator: OrchestratorConfig{
			MaxWorkers:    4,
			ToolTimeoutMs: 120000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads configuration for a project, falling back to defaults when no
// config file exists. Config lives at .sca/config.yaml (json and toml are
// also accepted by viper).
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(paths.StateDir(projectRoot))
	v.SetEnvPrefix("SCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file: defaults apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ProjectRoot == "" || cfg.ProjectRoot == "." {
		cfg.ProjectRoot = projectRoot
	}

	return &cfg, nil
}

// setDefaults registers all defaults so partial config files merge cleanly.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("projectRoot", def.ProjectRoot)
	v.SetDefault("scan.extensions", def.Scan.Extensions)
	v.SetDefault("scan.excludes", def.Scan.Excludes)
	v.SetDefault("scan.maxFileSizeBytes", def.Scan.MaxFileSizeBytes)
	v.SetDefault("cache.patternTtlSeconds", def.Cache.PatternTtlSeconds)
	v.SetDefault("cache.compressAboveBytes", def.Cache.CompressAboveBytes)
	v.SetDefault("orchestrator.maxWorkers", def.Orchestrator.MaxWorkers)
	v.SetDefault("orchestrator.toolTimeoutMs", def.Orchestrator.ToolTimeoutMs)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)
}
