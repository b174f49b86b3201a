package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/shellpane/pkg/config"
	"github.com/odvcencio/shellpane/pkg/errors"
)

func clearShellpaneEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHELLPANE_DELIMITER", "SHELLPANE_NAMESPACE", "SHELLPANE_PLUGIN_PATH",
		"SHELLPANE_BUILTINS", "SHELLPANE_SUGGEST", "SHELLPANE_COMMAND_TIMEOUT",
		"SHELLPANE_LOG", "SHELLPANE_LOG_DIR", "SHELLPANE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, " > ", cfg.Console.Delimiter)
	assert.Equal(t, config.DefaultNamespace, cfg.Commands.Namespace)
	assert.True(t, cfg.Commands.Builtins)
	assert.Zero(t, cfg.Commands.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadHierarchy(t *testing.T) {
	clearShellpaneEnv(t)
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".shellpane", "config.yaml"), `
console:
  delimiter: "user> "
commands:
  plugin_path: /opt/user-plugins
  timeout: 10s
`)
	writeFile(t, filepath.Join(project, ".shellpane", "config.yaml"), `
console:
  delimiter: "project> "
logging:
  level: debug
`)

	t.Chdir(project)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "project> ", cfg.Console.Delimiter, "project overrides user")
	assert.Equal(t, "/opt/user-plugins", cfg.Commands.PluginPath, "user value kept")
	assert.Equal(t, 10*time.Second, cfg.Commands.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromPathInvalid(t *testing.T) {
	clearShellpaneEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: chatty\n")

	_, err := config.LoadFromPath(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestLoadFromPathMissing(t *testing.T) {
	clearShellpaneEnv(t)
	t.Setenv("HOME", t.TempDir())

	_, err := config.LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigLoad))
}

func TestEnvOverrides(t *testing.T) {
	clearShellpaneEnv(t)
	t.Setenv("SHELLPANE_DELIMITER", "# ")
	t.Setenv("SHELLPANE_NAMESPACE", "ops.commands")
	t.Setenv("SHELLPANE_BUILTINS", "off")
	t.Setenv("SHELLPANE_COMMAND_TIMEOUT", "250ms")
	t.Setenv("SHELLPANE_LOG_LEVEL", "warn")
	t.Setenv("SHELLPANE_SUGGEST", "maybe")

	cfg := config.DefaultConfig()
	config.ApplyEnvOverridesForTest(cfg)

	assert.Equal(t, "# ", cfg.Console.Delimiter)
	assert.Equal(t, "ops.commands", cfg.Commands.Namespace)
	assert.False(t, cfg.Commands.Builtins)
	assert.True(t, cfg.Commands.Suggest, "unparseable bool leaves default")
	assert.Equal(t, 250*time.Millisecond, cfg.Commands.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConfigEnvFileLosesToProcessEnv(t *testing.T) {
	clearShellpaneEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".shellpane", "config.env"),
		"# comment\nSHELLPANE_PLUGIN_PATH=/from/file\nexport SHELLPANE_DELIMITER=\"file> \"\n")
	t.Setenv("SHELLPANE_DELIMITER", "env> ")

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "console:\n  rows: 40\n")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.Commands.PluginPath)
	assert.Equal(t, "env> ", cfg.Console.Delimiter)
	assert.Equal(t, 40, cfg.Console.Rows)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"empty delimiter", func(c *config.Config) { c.Console.Delimiter = "" }, "console.delimiter"},
		{"multiline delimiter", func(c *config.Config) { c.Console.Delimiter = ">\n" }, "console.delimiter"},
		{"negative rows", func(c *config.Config) { c.Console.Rows = -1 }, "console"},
		{"empty namespace", func(c *config.Config) { c.Commands.Namespace = "" }, "commands.namespace"},
		{"empty segment", func(c *config.Config) { c.Commands.Namespace = "console..commands" }, "commands.namespace"},
		{"path namespace", func(c *config.Config) { c.Commands.Namespace = "console/commands" }, "commands.namespace"},
		{"negative timeout", func(c *config.Config) { c.Commands.Timeout = -time.Second }, "commands.timeout"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, errors.ErrCodeConfigInvalid, e.Code)
			assert.Equal(t, tt.field, e.Context["field"])
		})
	}
}

func TestPathExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.DefaultConfig()
	assert.Equal(t, filepath.Join(home, ".shellpane", "logs"), cfg.LogDir())
	assert.Empty(t, cfg.PluginPath())

	cfg.Commands.PluginPath = "~/cmds"
	assert.Equal(t, filepath.Join(home, "cmds"), cfg.PluginPath())
}
