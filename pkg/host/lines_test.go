package host

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/shellpane/pkg/command"
	_ "github.com/odvcencio/shellpane/pkg/command/builtin"
	"github.com/odvcencio/shellpane/pkg/console"
)

func newConsole(t *testing.T, opts ...console.Option) *console.Console {
	t.Helper()
	reg, report := command.Discover(context.Background(), "console.commands", command.Builtins())
	require.Empty(t, report.Failed())
	c := console.New(command.NewDispatcher(reg), opts...)
	c.Reset()
	return c
}

func TestRunLinesTranscript(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(t, console.WithMirror(&out))

	err := RunLines(context.Background(), strings.NewReader("echo hi\nexit 3\necho never\n"), &out, c)

	require.NoError(t, err)
	assert.Equal(t, " > hi\n > ", out.String())
	assert.Equal(t, 3, c.ExitCode())
	assert.Equal(t, " > echo hi\nhi\n > exit 3\n > ", c.String())
}

func TestRunLinesEndOfInput(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(t, console.WithMirror(&out))

	err := RunLines(context.Background(), strings.NewReader("zzzz\r\n\n"), &out, c)

	require.NoError(t, err)
	assert.Equal(t, " > unknown command: zzzz\n >  > \n", out.String())
	assert.Equal(t, " > zzzz\nunknown command: zzzz\n > \n > ", c.String())
}

func TestRunLinesEcho(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(t, console.WithMirror(&out))

	err := RunLines(context.Background(), strings.NewReader("echo hi"), &out, c, WithEcho(true))

	require.NoError(t, err)
	assert.Equal(t, " > echo hi\nhi\n > \n", out.String())
}

func TestRunLinesPromptFollowsDelimiterChange(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(t, console.WithMirror(&out))

	err := RunLines(context.Background(), strings.NewReader("prompt $\n"), &out, c)

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.String(), " $ \n"), "got %q", out.String())
}

func TestRunLinesContextCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := newConsole(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- RunLines(ctx, pr, io.Discard, c) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunLines did not return after cancel")
	}
}
