package builtin_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/shellpane/pkg/command"
	"github.com/odvcencio/shellpane/pkg/command/builtin"
	"github.com/odvcencio/shellpane/pkg/console"
	"github.com/odvcencio/shellpane/pkg/ui/terminal"
)

func discover(t *testing.T) *command.Registry {
	t.Helper()
	reg, report := command.Discover(context.Background(), builtin.Namespace, command.Builtins())
	require.Empty(t, report.Failed())
	return reg
}

func newConsole(t *testing.T) *console.Console {
	t.Helper()
	c := console.New(command.NewDispatcher(discover(t)))
	c.Reset()
	return c
}

func run(t *testing.T, c *console.Console, line string) {
	t.Helper()
	c.TypeString(context.Background(), line)
	c.HandleKey(context.Background(), terminal.KeyEvent{Key: terminal.KeyEnter})
}

func TestBuiltinsRegistered(t *testing.T) {
	reg := discover(t)
	for _, name := range []string{"help", "echo", "clear", "prompt", "sleep", "exit", "version", "stats"} {
		entry, ok := reg.Lookup(name)
		if assert.True(t, ok, name) {
			assert.NotEmpty(t, entry.Description(), name)
			assert.Equal(t, builtin.Namespace+"."+name, entry.ID)
		}
	}
}

func TestEcho(t *testing.T) {
	c := newConsole(t)
	run(t, c, "echo hello   world")
	assert.Equal(t, " > echo hello   world\nhello world\n > ", c.String())
}

func TestHelpListsInDiscoveryOrder(t *testing.T) {
	reg := discover(t)
	d := command.NewDispatcher(reg)

	var buf bytes.Buffer
	require.Equal(t, 0, d.Dispatch(context.Background(), "help", command.NewOutput(&buf)))

	out := buf.String()
	last := -1
	for _, name := range reg.Names() {
		i := bytes.Index([]byte(out), []byte("  "+name+" "))
		require.GreaterOrEqual(t, i, 0, name)
		assert.Greater(t, i, last, "%s out of order", name)
		last = i
	}
	assert.Contains(t, out, "Print the arguments")
}

func TestHelpForOneCommand(t *testing.T) {
	d := command.NewDispatcher(discover(t))

	var buf bytes.Buffer
	assert.Equal(t, 0, d.Dispatch(context.Background(), "help echo", command.NewOutput(&buf)))
	assert.Contains(t, buf.String(), "echo - Print the arguments")
	assert.Contains(t, buf.String(), "source: builtin")

	buf.Reset()
	assert.Equal(t, 1, d.Dispatch(context.Background(), "help nope", command.NewOutput(&buf)))
	assert.Equal(t, "help: no such command: nope\n", buf.String())
}

func TestClear(t *testing.T) {
	c := newConsole(t)
	run(t, c, "echo one")
	run(t, c, "clear")
	assert.Equal(t, " > ", c.String())
}

func TestClearUnsupportedOutput(t *testing.T) {
	d := command.NewDispatcher(discover(t))
	var buf bytes.Buffer
	assert.Equal(t, 1, d.Dispatch(context.Background(), "clear", command.NewOutput(&buf)))
	assert.Contains(t, buf.String(), "not supported")
}

func TestPrompt(t *testing.T) {
	c := newConsole(t)
	run(t, c, "prompt")
	assert.Equal(t, " > prompt\n\" > \"\n > ", c.String())

	run(t, c, "prompt $")
	assert.Equal(t, " $ ", c.Delimiter())
	assert.Contains(t, c.String(), "prompt $\n $ ")
}

func TestSleep(t *testing.T) {
	d := command.NewDispatcher(discover(t))
	var buf bytes.Buffer
	out := command.NewOutput(&buf)

	assert.Equal(t, 0, d.Dispatch(context.Background(), "sleep 1ms", out))
	assert.Equal(t, 0, d.Dispatch(context.Background(), "sleep 0.001", out))
	assert.Equal(t, 2, d.Dispatch(context.Background(), "sleep", out))
	assert.Equal(t, 2, d.Dispatch(context.Background(), "sleep soon", out))
	assert.Equal(t, 2, d.Dispatch(context.Background(), "sleep -1s", out))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	buf.Reset()
	assert.Equal(t, command.ExitCanceled, d.Dispatch(ctx, "sleep 1m", out))
	assert.Equal(t, "sleep: interrupted\n", buf.String())
}

func TestExit(t *testing.T) {
	c := newConsole(t)
	run(t, c, "exit 4")

	select {
	case <-c.Done():
	default:
		t.Fatal("exit did not request quit")
	}
	assert.Equal(t, 4, c.ExitCode())

	c2 := newConsole(t)
	run(t, c2, "exit x")
	assert.Contains(t, c2.String(), "exit: not a number: x")
	assert.Zero(t, c2.ExitCode())
}

func TestVersion(t *testing.T) {
	old := builtin.Version
	builtin.Version = "1.2.3"
	t.Cleanup(func() { builtin.Version = old })

	c := newConsole(t)
	run(t, c, "version")
	assert.Contains(t, c.String(), "shellpane 1.2.3\n")
}

func TestStatsReadsDispatchCounters(t *testing.T) {
	c := newConsole(t)
	run(t, c, "echo counted")
	run(t, c, "nosuchcommand")

	var buf bytes.Buffer
	d := command.NewDispatcher(discover(t))
	require.Equal(t, 0, d.Dispatch(context.Background(), "stats", command.NewOutput(&buf)))

	out := buf.String()
	assert.Contains(t, out, `shellpane_dispatch_total{outcome="ok"}`)
	assert.Contains(t, out, `shellpane_dispatch_total{outcome="unknown"}`)
	assert.Contains(t, out, `shellpane_discovery_candidates_total{status="OK"}`)
	assert.NotContains(t, out, "go_goroutines")
}

func TestStatsFilter(t *testing.T) {
	c := newConsole(t)
	run(t, c, "echo counted")

	var buf bytes.Buffer
	d := command.NewDispatcher(discover(t))
	require.Equal(t, 0, d.Dispatch(context.Background(), "stats dispatch_total", command.NewOutput(&buf)))

	assert.Contains(t, buf.String(), "shellpane_dispatch_total")
	assert.NotContains(t, buf.String(), "discovery_candidates")
}

type failingGatherer struct{}

func (failingGatherer) Gather() ([]*dto.MetricFamily, error) {
	return nil, errors.New("registry unavailable")
}

func TestStatsGatherError(t *testing.T) {
	saved := builtin.Gatherer
	builtin.Gatherer = failingGatherer{}
	t.Cleanup(func() { builtin.Gatherer = saved })

	var buf bytes.Buffer
	d := command.NewDispatcher(discover(t))
	assert.Equal(t, 1, d.Dispatch(context.Background(), "stats", command.NewOutput(&buf)))
	assert.Equal(t, "stats: registry unavailable\n", buf.String())
}
