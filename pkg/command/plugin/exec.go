package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/odvcencio/shellpane/pkg/command"
)

// Exit codes for exec commands that never produced a status of their own.
const (
	exitCannotExecute = 126
)

// ExecCommand runs an external program described by a Manifest. The
// program's stdout and stderr are streamed into the console.
type ExecCommand struct {
	command.Base
	manifest   *Manifest
	executable string
	workDir    string
}

// NewExecCommand creates a command for manifest running executablePath.
func NewExecCommand(manifest *Manifest, executablePath, workDir string) *ExecCommand {
	return &ExecCommand{
		manifest:   manifest,
		executable: executablePath,
		workDir:    workDir,
	}
}

// Description implements command.Describer.
func (c *ExecCommand) Description() string {
	return c.manifest.Description
}

// Executable returns the resolved program path.
func (c *ExecCommand) Executable() string {
	return c.executable
}

// Execute implements command.Command.
func (c *ExecCommand) Execute(ctx context.Context, args []string) int {
	out := c.Output()
	timeout := c.manifest.Timeout()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append([]string{}, c.manifest.Args...), args...)
	cmd := exec.CommandContext(ctx, c.executable, argv...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}
	cmd.Env = mergeEnv(nil, c.manifest.Env)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err == nil {
		return command.ExitOK
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Printf("%s: timed out after %s\n", c.manifest.Name, timeout)
		return command.ExitTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return command.ExitCanceled
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	out.Printf("%s: %v\n", c.manifest.Name, err)
	return exitCannotExecute
}

// checkExecutable verifies that a file is executable.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	mode := info.Mode()
	if mode&0111 == 0 {
		return fmt.Errorf("file is not executable (mode: %v)", mode)
	}

	return nil
}

func sanitizeEnvMap(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		key := strings.TrimSpace(k)
		if !isValidEnvKey(key) {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		if i == 0 {
			if !(r == '_' || unicode.IsLetter(r)) {
				return false
			}
			continue
		}
		if !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func mergeEnv(base []string, overrides map[string]string) []string {
	overrides = sanitizeEnvMap(overrides)
	if len(overrides) == 0 {
		return base
	}
	if base == nil {
		base = os.Environ()
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		base = append(base, fmt.Sprintf("%s=%s", k, overrides[k]))
	}
	return base
}
