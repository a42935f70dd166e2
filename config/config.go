package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/sandboxfs/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI style verbosity values accepted by [ConfigOverride.LogLvl].
// 1 is the quietest and 5 the noisiest; values outside the range are clamped.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	// DefaultHistoryLimit of 0 keeps every entry until the session is cleared
	DefaultHistoryLimit = 0

	// DefaultPrompt is rendered with the session's current path
	DefaultPrompt = "sandbox:%s$ "

	DefaultListenAddr = "127.0.0.1:8080"

	// DefaultMaxSessions caps concurrently held sessions on the gateway
	DefaultMaxSessions = 1024

	// DefaultSessionIdleTimeout is how long an untouched gateway session lives
	DefaultSessionIdleTimeout = 30 * time.Minute

	DefaultMetricsPath = "/metrics"

	DefaultFsName = "sandboxfs"
	DefaultName   = "sandboxfs"
)

// Config contains runtime configuration values for sandbox sessions and the
// surfaces that host them.
type Config struct {
	MountOptions
	LogLvl             util.LogLevel // Internal log level (Default info)
	HistoryLimit       int           // Max history entries kept per session; 0 = unlimited (Default 0)
	Prompt             string        // fmt pattern for the REPL prompt, receives the cwd (Default "sandbox:%s$ ")
	ListenAddr         string        // Gateway listen address (Default 127.0.0.1:8080)
	MaxSessions        int           // Max live gateway sessions; 0 = unlimited (Default 1024)
	SessionIdleTimeout time.Duration // Idle gateway sessions are evicted after this; 0 = never (Default 30m)
	MetricsPath        string        // Gateway Prometheus endpoint; "" disables it (Default /metrics)
	Seed               string        // Seed tree location, a file path or http(s) URL; "" uses the builtin tree
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is the CLI verbosity between 1 (error) and 5 (trace)
	LogLvl             *int           `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"`
	HistoryLimit       *int           `yaml:"history_limit,omitempty" json:"history_limit,omitempty"`
	Prompt             *string        `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	ListenAddr         *string        `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
	MaxSessions        *int           `yaml:"max_sessions,omitempty" json:"max_sessions,omitempty"`
	SessionIdleTimeout *time.Duration `yaml:"session_idle_timeout,omitempty" json:"session_idle_timeout,omitempty"`
	MetricsPath        *string        `yaml:"metrics_path,omitempty" json:"metrics_path,omitempty"`
	Seed               *string        `yaml:"seed,omitempty" json:"seed,omitempty"`
	FuseDebug          *bool          `yaml:"fuse_debug,omitempty" json:"fuse_debug,omitempty"`
	FsName             *string        `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name               *string        `yaml:"name,omitempty" json:"name,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:             DefaultLogLvl,
		HistoryLimit:       DefaultHistoryLimit,
		Prompt:             DefaultPrompt,
		ListenAddr:         DefaultListenAddr,
		MaxSessions:        DefaultMaxSessions,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
		MetricsPath:        DefaultMetricsPath,
	}
}

// NewConfig returns the defaults with override applied. A nil override is allowed.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// VerboseToLogLvl converts a CLI verbosity (1 error .. 5 trace) to a [util.LogLevel],
// clamping out of range values.
func VerboseToLogLvl(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLvl(*override.LogLvl)
	}
	if override.HistoryLimit != nil {
		c.HistoryLimit = max(0, *override.HistoryLimit)
	}
	if override.Prompt != nil {
		c.Prompt = *override.Prompt
	}
	if override.ListenAddr != nil {
		c.ListenAddr = *override.ListenAddr
	}
	if override.MaxSessions != nil {
		c.MaxSessions = max(0, *override.MaxSessions)
	}
	if override.SessionIdleTimeout != nil {
		c.SessionIdleTimeout = *override.SessionIdleTimeout
	}
	if override.MetricsPath != nil {
		c.MetricsPath = *override.MetricsPath
	}
	if override.Seed != nil {
		c.Seed = *override.Seed
	}
	if override.FuseDebug != nil {
		c.Debug = *override.FuseDebug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
