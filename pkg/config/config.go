// Package config loads shellpane settings from YAML files and the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/odvcencio/shellpane/pkg/errors"
	"github.com/odvcencio/shellpane/pkg/logging"
)

// Config is the complete shellpane configuration.
type Config struct {
	Console  ConsoleConfig  `yaml:"console"`
	Commands CommandsConfig `yaml:"commands"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ConsoleConfig controls the console widget.
type ConsoleConfig struct {
	Delimiter string `yaml:"delimiter"`
	// Rows and Columns are the viewport reported when stdout is not a
	// terminal. They are cosmetic.
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`
}

// CommandsConfig controls discovery and dispatch.
type CommandsConfig struct {
	Namespace  string        `yaml:"namespace"`
	PluginPath string        `yaml:"plugin_path"`
	Builtins   bool          `yaml:"builtins"`
	Suggest    bool          `yaml:"suggest"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig controls the JSONL session log.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Level   string `yaml:"level"`
}

// DefaultNamespace is where built-in commands register.
const DefaultNamespace = "console.commands"

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Console: ConsoleConfig{
			Delimiter: " > ",
			Rows:      20,
			Columns:   80,
		},
		Commands: CommandsConfig{
			Namespace: DefaultNamespace,
			Builtins:  true,
			Suggest:   true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Dir:     "~/.shellpane/logs",
			Level:   string(logging.LevelInfo),
		},
	}
}

// Load reads ~/.shellpane/config.yaml then ./.shellpane/config.yaml over the
// defaults, applies SHELLPANE_* overrides and validates the result.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".shellpane", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading user config").
				WithContext("path", userConfigPath)
		}
	}

	projectConfigPath := filepath.Join(".", ".shellpane", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading project config").
			WithContext("path", projectConfigPath)
	}

	applyEnvOverrides(cfg, configEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading config").
			WithContext("path", path)
	}

	applyEnvOverrides(cfg, configEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverridesForTest exposes env override logic for tests without file I/O.
func ApplyEnvOverridesForTest(cfg *Config) {
	applyEnvOverrides(cfg, nil)
}

// applyEnvOverrides layers SHELLPANE_* variables over cfg. Process
// environment wins over values read from config.env.
func applyEnvOverrides(cfg *Config, configEnv map[string]string) {
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return configEnv[key]
	}

	if v := lookup("SHELLPANE_DELIMITER"); v != "" {
		cfg.Console.Delimiter = v
	}
	if v := lookup("SHELLPANE_NAMESPACE"); v != "" {
		cfg.Commands.Namespace = strings.TrimSpace(v)
	}
	if v := lookup("SHELLPANE_PLUGIN_PATH"); v != "" {
		cfg.Commands.PluginPath = strings.TrimSpace(v)
	}
	if v, ok := parseBool(lookup("SHELLPANE_BUILTINS")); ok {
		cfg.Commands.Builtins = v
	}
	if v, ok := parseBool(lookup("SHELLPANE_SUGGEST")); ok {
		cfg.Commands.Suggest = v
	}
	if v := lookup("SHELLPANE_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.Commands.Timeout = d
		}
	}
	if v, ok := parseBool(lookup("SHELLPANE_LOG")); ok {
		cfg.Logging.Enabled = v
	}
	if v := lookup("SHELLPANE_LOG_DIR"); v != "" {
		cfg.Logging.Dir = strings.TrimSpace(v)
	}
	if v := lookup("SHELLPANE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.TrimSpace(v)
	}
}

func parseBool(val string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks the configuration for values the console cannot run with.
func (c *Config) Validate() error {
	invalid := func(field, msg string) error {
		return errors.New(errors.ErrCodeConfigInvalid, msg).WithContext("field", field)
	}

	if c.Console.Delimiter == "" {
		return invalid("console.delimiter", "delimiter must not be empty")
	}
	if strings.ContainsAny(c.Console.Delimiter, "\r\n") {
		return invalid("console.delimiter", "delimiter must be a single line")
	}
	if c.Console.Rows < 0 || c.Console.Columns < 0 {
		return invalid("console", "rows and columns must not be negative")
	}

	ns := c.Commands.Namespace
	if ns == "" {
		return invalid("commands.namespace", "namespace must not be empty")
	}
	for _, seg := range strings.Split(ns, ".") {
		if seg == "" || strings.ContainsAny(seg, " \t/\\") {
			return invalid("commands.namespace", "namespace must be dot-separated names")
		}
	}
	if c.Commands.Timeout < 0 {
		return invalid("commands.timeout", "timeout must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "").WithContext("field", "logging.level")
	}
	return nil
}

// LogDir returns the logging directory with ~ expanded.
func (c *Config) LogDir() string {
	return expandHomeDir(c.Logging.Dir)
}

// PluginPath returns the configured plugin location with ~ expanded, or ""
// when the location should be derived from the executable.
func (c *Config) PluginPath() string {
	return expandHomeDir(c.Commands.PluginPath)
}

// loadConfigEnvVars reads ~/.shellpane/config.env, if present.
func loadConfigEnvVars() map[string]string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}

	vars, err := godotenv.Read(filepath.Join(home, ".shellpane", "config.env"))
	if err != nil {
		return nil
	}
	return vars
}

func expandHomeDir(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
