package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// resetViper gives each test a clean global viper with defaults registered.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default bridge config
	if cfg.Bridge.DefaultTimeoutMs != 5000 {
		t.Errorf("Bridge.DefaultTimeoutMs = %d, want 5000", cfg.Bridge.DefaultTimeoutMs)
	}
	if cfg.Bridge.DefaultNamespace != "ns-ntApi" {
		t.Errorf("Bridge.DefaultNamespace = %q, want %q", cfg.Bridge.DefaultNamespace, "ns-ntApi")
	}
	if cfg.Bridge.DefaultChannel != "IPC_UP_2" {
		t.Errorf("Bridge.DefaultChannel = %q, want %q", cfg.Bridge.DefaultChannel, "IPC_UP_2")
	}
	if cfg.Bridge.QueueSize != 64 {
		t.Errorf("Bridge.QueueSize = %d, want 64", cfg.Bridge.QueueSize)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.Compress {
		t.Error("Logging.Compress should be false by default")
	}

	// Host script is opt-in
	if cfg.Host.Script != "" {
		t.Errorf("Host.Script = %q, want empty", cfg.Host.Script)
	}
}

func TestBridgeConfig_DefaultTimeout(t *testing.T) {
	tests := []struct {
		ms       int
		expected time.Duration
	}{
		{100, 100 * time.Millisecond},
		{5000, 5 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		cfg := BridgeConfig{DefaultTimeoutMs: tt.ms}
		if got := cfg.DefaultTimeout(); got != tt.expected {
			t.Errorf("DefaultTimeout() with %dms = %v, want %v", tt.ms, got, tt.expected)
		}
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/llonebot" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/llonebot")
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "llonebot")
		if got := ConfigDir(); got != expected {
			t.Errorf("ConfigDir() = %q, want %q", got, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got := ConfigFile(); got != "/custom/config/llonebot/config.yaml" {
		t.Errorf("ConfigFile() = %q, want %q", got, "/custom/config/llonebot/config.yaml")
	}
}

func TestGet(t *testing.T) {
	resetViper(t)

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Bridge.DefaultTimeoutMs != 5000 {
		t.Errorf("Get().Bridge.DefaultTimeoutMs = %d, want 5000", cfg.Bridge.DefaultTimeoutMs)
	}
}

func TestGet_FallsBackOnInvalid(t *testing.T) {
	resetViper(t)
	viper.Set("bridge.default_channel", "IPC_DOWN_1")

	cfg := Get()
	if cfg.Bridge.DefaultChannel != "IPC_UP_2" {
		t.Errorf("Get().Bridge.DefaultChannel = %q, want default IPC_UP_2", cfg.Bridge.DefaultChannel)
	}
}

func TestLoad_FromFile(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, `
bridge:
  default_timeout_ms: 250
  default_channel: IPC_UP_3
logging:
  level: debug
  compress: true
host:
  script: scenario.yaml
`)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.DefaultTimeout() != 250*time.Millisecond {
		t.Errorf("DefaultTimeout() = %v, want 250ms", cfg.Bridge.DefaultTimeout())
	}
	if cfg.Bridge.DefaultChannel != "IPC_UP_3" {
		t.Errorf("DefaultChannel = %q, want IPC_UP_3", cfg.Bridge.DefaultChannel)
	}
	// unset keys keep their defaults
	if cfg.Bridge.DefaultNamespace != "ns-ntApi" {
		t.Errorf("DefaultNamespace = %q, want ns-ntApi", cfg.Bridge.DefaultNamespace)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Compress {
		t.Errorf("Logging = %+v, want debug with compression", cfg.Logging)
	}
	if cfg.Host.Script != "scenario.yaml" {
		t.Errorf("Host.Script = %q, want scenario.yaml", cfg.Host.Script)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	resetViper(t)
	BindEnv()
	t.Setenv("LLONEBOT_BRIDGE_DEFAULT_TIMEOUT_MS", "1234")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.DefaultTimeoutMs != 1234 {
		t.Errorf("DefaultTimeoutMs = %d, want 1234", cfg.Bridge.DefaultTimeoutMs)
	}
}

func TestLoad_Invalid(t *testing.T) {
	resetViper(t)
	viper.Set("bridge.default_timeout_ms", 0)
	viper.Set("bridge.queue_size", 0)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for invalid values")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Load() error = %v, want ErrInvalidInput", err)
	}
	var verrs errors.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 2 {
		t.Errorf("Load() error = %#v, want 2 validation errors", err)
	}
}

func TestHandleChange(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, "bridge:\n  default_timeout_ms: 100\n")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	var applied []*Config
	var failures []error
	apply := func(c *Config) { applied = append(applied, c) }
	fail := func(err error) { failures = append(failures, err) }

	// rewrite and re-read as viper does before notifying
	if err := os.WriteFile(path, []byte("bridge:\n  default_timeout_ms: 900\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, apply, fail)

	if len(applied) != 1 || applied[0].Bridge.DefaultTimeoutMs != 900 {
		t.Fatalf("applied = %v, want one config with 900ms", applied)
	}

	// chmod-only events are ignored
	handleChange(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, apply, fail)
	if len(applied) != 1 {
		t.Errorf("chmod event applied a config")
	}

	// invalid changes are reported, not applied
	if err := os.WriteFile(path, []byte("bridge:\n  default_timeout_ms: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, apply, fail)
	if len(applied) != 1 {
		t.Errorf("invalid config was applied")
	}
	if len(failures) != 1 {
		t.Errorf("failures = %v, want 1", failures)
	}
}
