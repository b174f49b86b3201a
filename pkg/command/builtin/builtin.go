// Package builtin registers the commands every console ships with. Import it
// for its side effects:
//
//	import _ "github.com/odvcencio/shellpane/pkg/command/builtin"
package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/odvcencio/shellpane/pkg/command"
)

// Namespace is where the built-in commands are registered.
const Namespace = "console.commands"

// Version is reported by the version command. Set it at startup.
var Version = "dev"

// Gatherer is what the stats command reads counters from.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

const metricPrefix = "shellpane_"

func init() {
	command.Register(Namespace+".help", command.New[helpCmd]())
	command.Register(Namespace+".echo", command.New[echoCmd]())
	command.Register(Namespace+".clear", command.New[clearCmd]())
	command.Register(Namespace+".prompt", command.New[promptCmd]())
	command.Register(Namespace+".sleep", command.New[sleepCmd]())
	command.Register(Namespace+".exit", command.New[exitCmd]())
	command.Register(Namespace+".version", command.New[versionCmd]())
	command.Register(Namespace+".stats", command.New[statsCmd]())
}

// Optional capabilities of the output a command writes to.
type (
	resetter interface {
		Reset()
	}
	delimiterSetter interface {
		Delimiter() string
		SetDelimiter(string)
	}
	quitter interface {
		RequestQuit(code int)
	}
)

const exitUsage = 2

type helpCmd struct {
	command.Base
	registry *command.Registry
}

func (h *helpCmd) SetRegistry(reg *command.Registry) { h.registry = reg }

func (*helpCmd) Description() string { return "List commands, or describe one" }

func (h *helpCmd) Execute(_ context.Context, args []string) int {
	out := h.Output()
	if len(args) > 0 {
		entry, ok := h.registry.Lookup(args[0])
		if !ok {
			out.Printf("help: no such command: %s\n", args[0])
			return 1
		}
		desc := entry.Description()
		if desc == "" {
			desc = "(no description)"
		}
		out.Printf("%s - %s\n  id: %s\n  source: %s\n", entry.Name, desc, entry.ID, entry.Source)
		return 0
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, entry := range h.registry.Entries() {
		fmt.Fprintf(tw, "  %s\t%s\n", entry.Name, entry.Description())
	}
	tw.Flush()
	return 0
}

type echoCmd struct {
	command.Base
}

func (*echoCmd) Description() string { return "Print the arguments" }

func (e *echoCmd) Execute(_ context.Context, args []string) int {
	e.Output().Println(strings.Join(args, " "))
	return 0
}

type clearCmd struct {
	command.Base
}

func (*clearCmd) Description() string { return "Clear the console" }

func (c *clearCmd) Execute(context.Context, []string) int {
	r, ok := c.Out.(resetter)
	if !ok {
		c.Output().Println("clear: not supported by this output")
		return 1
	}
	r.Reset()
	return 0
}

type promptCmd struct {
	command.Base
}

func (*promptCmd) Description() string { return "Show or change the prompt" }

func (p *promptCmd) Execute(_ context.Context, args []string) int {
	out := p.Output()
	d, ok := p.Out.(delimiterSetter)
	if !ok {
		out.Println("prompt: not supported by this output")
		return 1
	}
	if len(args) == 0 {
		out.Printf("%q\n", d.Delimiter())
		return 0
	}
	d.SetDelimiter(" " + strings.Join(args, " ") + " ")
	return 0
}

type sleepCmd struct {
	command.Base
}

func (*sleepCmd) Description() string { return "Wait for a duration (e.g. 2s, 500ms)" }

func (s *sleepCmd) Execute(ctx context.Context, args []string) int {
	out := s.Output()
	if len(args) != 1 {
		out.Println("usage: sleep <duration>")
		return exitUsage
	}
	d, err := parseDuration(args[0])
	if err != nil {
		out.Printf("sleep: %v\n", err)
		return exitUsage
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return 0
	case <-ctx.Done():
		out.Println("sleep: interrupted")
		return command.ExitCanceled
	}
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		s = strconv.FormatFloat(secs, 'f', -1, 64) + "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

type exitCmd struct {
	command.Base
}

func (*exitCmd) Description() string { return "Quit the console" }

func (e *exitCmd) Execute(_ context.Context, args []string) int {
	out := e.Output()
	code := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			out.Printf("exit: not a number: %s\n", args[0])
			return exitUsage
		}
		code = n
	}
	q, ok := e.Out.(quitter)
	if !ok {
		out.Println("exit: not supported by this output")
		return 1
	}
	q.RequestQuit(code)
	return code
}

type versionCmd struct {
	command.Base
}

func (*versionCmd) Description() string { return "Print the shellpane version" }

func (v *versionCmd) Execute(context.Context, []string) int {
	v.Output().Println("shellpane " + Version)
	return 0
}

type statsCmd struct {
	command.Base
}

func (*statsCmd) Description() string { return "Show dispatch and discovery counters" }

// Execute prints every shellpane_ counter, optionally only those whose name
// contains the first argument.
func (c *statsCmd) Execute(_ context.Context, args []string) int {
	out := c.Output()
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	families, err := Gatherer.Gather()
	if err != nil {
		out.Printf("stats: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, metricPrefix) || !strings.Contains(name, filter) {
			continue
		}
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(tw, "  %s%s\t%g\n", name, formatLabels(m.GetLabel()), sampleValue(m))
		}
	}
	tw.Flush()
	return 0
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
