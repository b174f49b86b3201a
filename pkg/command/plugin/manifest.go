package plugin

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeoutMs bounds an exec command that does not set timeout_ms.
const DefaultTimeoutMs = 120000

// Manifest describes an external program exposed as a console command.
//
//	name: greet
//	description: Say hello
//	executable: ./greet.sh
//	args: ["--color=never"]
//	env: { GREETING: hello }
//	timeout_ms: 5000
type Manifest struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Executable  string            `yaml:"executable"`
	Args        []string          `yaml:"args"`
	Env         map[string]string `yaml:"env"`
	TimeoutMs   int               `yaml:"timeout_ms"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &manifest, nil
}

// Validate checks required fields and fills defaults.
func (m *Manifest) Validate() error {
	if m.Executable == "" {
		return fmt.Errorf("executable is required")
	}
	if m.TimeoutMs <= 0 {
		m.TimeoutMs = DefaultTimeoutMs
	}
	return nil
}

// Timeout returns TimeoutMs as a duration.
func (m *Manifest) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}
