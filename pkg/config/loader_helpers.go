package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/shellpane/pkg/errors"
)

// loadAndMerge loads a YAML file and merges it into the config.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML")
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Booleans only override when the
// file actually sets them, since false is also their zero value.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if override.Console.Delimiter != "" {
		base.Console.Delimiter = override.Console.Delimiter
	}
	if override.Console.Rows != 0 {
		base.Console.Rows = override.Console.Rows
	}
	if override.Console.Columns != 0 {
		base.Console.Columns = override.Console.Columns
	}

	if override.Commands.Namespace != "" {
		base.Commands.Namespace = override.Commands.Namespace
	}
	if override.Commands.PluginPath != "" {
		base.Commands.PluginPath = override.Commands.PluginPath
	}
	if boolFieldSet(raw, "commands", "builtins") {
		base.Commands.Builtins = override.Commands.Builtins
	}
	if boolFieldSet(raw, "commands", "suggest") {
		base.Commands.Suggest = override.Commands.Suggest
	}
	if boolFieldSet(raw, "commands", "timeout") {
		base.Commands.Timeout = override.Commands.Timeout
	}

	if boolFieldSet(raw, "logging", "enabled") {
		base.Logging.Enabled = override.Logging.Enabled
	}
	if override.Logging.Dir != "" {
		base.Logging.Dir = override.Logging.Dir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
}

// boolFieldSet reports whether the nested key path is present in raw.
func boolFieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
