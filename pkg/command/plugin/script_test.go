package plugin

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/shellpane/pkg/command"
)

func loadScriptCommand(t *testing.T, src string) (*ScriptCommand, *bytes.Buffer) {
	t.Helper()
	v, err := LoadScript(context.Background(), "test.star", []byte(src))
	require.NoError(t, err)
	cmd, ok := v.(*ScriptCommand)
	require.True(t, ok, "expected a command, got %T", v)

	var buf bytes.Buffer
	cmd.SetOutput(command.NewOutput(&buf))
	return cmd, &buf
}

func TestScriptCommandExitCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"none", "    pass", 0},
		{"int", "    return len(args)", 2},
		{"true", "    return True", 0},
		{"false", "    return False", 1},
		{"string", `    return "nope"`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := loadScriptCommand(t, "def execute(args):\n"+tt.body+"\n")
			assert.Equal(t, tt.want, cmd.Execute(context.Background(), []string{"a", "b"}))
		})
	}
}

func TestScriptCommandPrintsToConsole(t *testing.T) {
	cmd, buf := loadScriptCommand(t, `
def execute(args):
    for a in args:
        print(a.upper())
`)
	cmd.Execute(context.Background(), []string{"x", "y"})
	assert.Equal(t, "X\nY\n", buf.String())
}

func TestScriptCommandRuntimeError(t *testing.T) {
	cmd, buf := loadScriptCommand(t, "def execute(args):\n    return args[5]\n")

	assert.Equal(t, 1, cmd.Execute(context.Background(), nil))
	assert.Contains(t, buf.String(), "index")
}

func TestScriptCommandCanceled(t *testing.T) {
	cmd, _ := loadScriptCommand(t, `
def execute(args):
    n = 0
    for i in range(1000000000):
        n += 1
    return 0
`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Equal(t, command.ExitCanceled, cmd.Execute(ctx, nil))
}

func TestLoadScriptWithoutExecute(t *testing.T) {
	v, err := LoadScript(context.Background(), "lib.star", []byte("execute = 42\n"))
	require.NoError(t, err)

	mod, ok := v.(*ScriptModule)
	require.True(t, ok)
	assert.Equal(t, "lib.star", mod.Filename)

	_, isCommand := v.(command.Command)
	assert.False(t, isCommand)
}

func TestLoadScriptErrors(t *testing.T) {
	_, err := LoadScript(context.Background(), "bad.star", []byte("def execute(:\n"))
	assert.Error(t, err, "syntax error")

	_, err = LoadScript(context.Background(), "spin.star", []byte(`
def spin():
    for i in range(1000000000):
        pass

spin()
`))
	assert.Error(t, err, "top-level code is bounded")
}
