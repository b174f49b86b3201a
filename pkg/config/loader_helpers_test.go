package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/shellpane/pkg/errors"
)

func TestMergeConfigsPreservesBooleanDefaults(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Console: ConsoleConfig{Delimiter: "$ "},
	}
	raw := map[string]any{
		"console": map[string]any{
			"delimiter": "$ ",
		},
	}

	mergeConfigs(base, override, raw)

	assert.True(t, base.Commands.Builtins, "builtins should stay enabled when not overridden")
	assert.True(t, base.Logging.Enabled)
	assert.Equal(t, "$ ", base.Console.Delimiter)
	assert.Equal(t, 80, base.Console.Columns)
}

func TestMergeConfigsRespectsBooleanOverrides(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	raw := map[string]any{
		"commands": map[string]any{
			"builtins": false,
			"suggest":  false,
		},
		"logging": map[string]any{
			"enabled": false,
		},
	}

	mergeConfigs(base, override, raw)

	assert.False(t, base.Commands.Builtins)
	assert.False(t, base.Commands.Suggest)
	assert.False(t, base.Logging.Enabled)
}

func TestMergeConfigsNilOverride(t *testing.T) {
	base := DefaultConfig()
	mergeConfigs(base, nil, nil)
	assert.Equal(t, DefaultConfig(), base)
}

func TestLoadAndMergeDurationsAndParseErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("commands:\n  timeout: 1500ms\n  namespace: my.cmds\n"), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, loadAndMerge(cfg, good))
	assert.Equal(t, 1500*time.Millisecond, cfg.Commands.Timeout)
	assert.Equal(t, "my.cmds", cfg.Commands.Namespace)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("console: [unterminated\n"), 0o644))
	err := loadAndMerge(DefaultConfig(), bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigParse))

	err = loadAndMerge(DefaultConfig(), filepath.Join(dir, "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestBoolFieldSet(t *testing.T) {
	raw := map[string]any{
		"commands": map[string]any{"builtins": false},
		"flat":     true,
	}
	assert.True(t, boolFieldSet(raw, "commands", "builtins"))
	assert.True(t, boolFieldSet(raw, "flat"))
	assert.False(t, boolFieldSet(raw, "commands", "suggest"))
	assert.False(t, boolFieldSet(raw, "flat", "deeper"))
	assert.False(t, boolFieldSet(nil, "commands"))
	assert.False(t, boolFieldSet(raw))
}

func TestExpandHomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, expandHomeDir("~"))
	assert.Equal(t, filepath.Join(home, "logs"), expandHomeDir(" ~/logs "))
	assert.Equal(t, "/abs/path", expandHomeDir("/abs/path"))
	assert.Empty(t, expandHomeDir("  "))
}
