package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/hostbus"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// LLONEBOT_BRIDGE_DEFAULT_TIMEOUT_MS.
const EnvPrefix = "LLONEBOT"

// Config represents the complete bridge configuration
type Config struct {
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Host    HostConfig    `mapstructure:"host" yaml:"host"`
}

// BridgeConfig controls call correlation defaults
type BridgeConfig struct {
	// DefaultTimeoutMs bounds calls that do not set their own timeout
	DefaultTimeoutMs int `mapstructure:"default_timeout_ms" yaml:"default_timeout_ms"`
	// DefaultNamespace is the API namespace used when a call does not name one
	DefaultNamespace string `mapstructure:"default_namespace" yaml:"default_namespace"`
	// DefaultChannel is the bus channel used when a call does not name one
	// Options: "IPC_UP_1", "IPC_UP_2", "IPC_UP_3", "IPC_UP_4"
	DefaultChannel string `mapstructure:"default_channel" yaml:"default_channel"`
	// QueueSize is the per-channel request buffer of the in-process bus
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level to record
	// Options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where bridge.log is written. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum size of a log file before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// HostConfig selects the host the CLI talks to
type HostConfig struct {
	// Script is a YAML scenario played by the scripted host
	Script string `mapstructure:"script" yaml:"script"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			DefaultTimeoutMs: int(ntcall.DefaultTimeout / time.Millisecond),
			DefaultNamespace: string(ntcall.DefaultNamespace),
			DefaultChannel:   string(ntcall.DefaultChannel),
			QueueSize:        hostbus.DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultTimeout returns DefaultTimeoutMs as a duration
func (c *BridgeConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// Namespace returns the default namespace as a typed value
func (c *BridgeConfig) Namespace() ntcall.Namespace {
	return ntcall.Namespace(c.DefaultNamespace)
}

// Channel returns the default channel as a typed value
func (c *BridgeConfig) Channel() ntcall.Channel {
	return ntcall.Channel(c.DefaultChannel)
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Bridge defaults
	viper.SetDefault("bridge.default_timeout_ms", defaults.Bridge.DefaultTimeoutMs)
	viper.SetDefault("bridge.default_namespace", defaults.Bridge.DefaultNamespace)
	viper.SetDefault("bridge.default_channel", defaults.Bridge.DefaultChannel)
	viper.SetDefault("bridge.queue_size", defaults.Bridge.QueueSize)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Host defaults
	viper.SetDefault("host.script", defaults.Host.Script)
}

// BindEnv enables environment overrides under EnvPrefix. Dots in keys
// become underscores, so bridge.default_timeout_ms is read from
// LLONEBOT_BRIDGE_DEFAULT_TIMEOUT_MS.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Watch calls fn with the reloaded configuration whenever the config file
// changes. Changes that fail validation are reported to onError and not
// applied. Watch must be called after viper has read a config file.
func Watch(fn func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		handleChange(e, fn, onError)
	})
	viper.WatchConfig()
}

func handleChange(e fsnotify.Event, fn func(*Config), onError func(error)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := Load()
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	fn(cfg)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "llonebot")
	}
	// Fall back to ~/.config/llonebot
	home, err := os.UserHomeDir()
	if err != nil {
		return ".llonebot"
	}
	return filepath.Join(home, ".config", "llonebot")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
