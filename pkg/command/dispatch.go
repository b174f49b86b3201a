package command

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/odvcencio/shellpane/pkg/errors"
	"github.com/odvcencio/shellpane/pkg/logging"
)

// maxSuggestDistance bounds how far a typo may be from a registered name
// before "did you mean" stays quiet.
const maxSuggestDistance = 2

// Dispatcher resolves typed lines to registered commands and runs them.
type Dispatcher struct {
	registry *Registry
	logger   *logging.Logger
	timeout  time.Duration
	suggest  bool

	mu sync.Mutex
	// abandoned holds, by command name, runs that outlived their deadline.
	// The channel closes when Execute finally returns.
	abandoned map[string]<-chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger records every dispatch to the session log.
func WithLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTimeout bounds how long a single command may run. Zero disables it.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithSuggestions toggles "did you mean" hints for unknown commands.
func WithSuggestions(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.suggest = enabled
	}
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	if reg == nil {
		reg = NewRegistry()
	}
	d := &Dispatcher{registry: reg, suggest: true, abandoned: make(map[string]<-chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry commands are resolved against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Tokenize splits a line on whitespace. There is no quoting or escaping.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

// Dispatch runs line against the registry, writing any diagnostics to out,
// and returns the exit code. It never panics on behalf of a command.
func (d *Dispatcher) Dispatch(ctx context.Context, line string, out Output) int {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		recordDispatch(outcomeEmpty)
		return ExitOK
	}
	name, args := tokens[0], tokens[1:]

	entry, ok := d.registry.Lookup(name)
	if !ok {
		out.Println("unknown command: " + name)
		if hint := d.suggestion(name); hint != "" {
			out.Printf("did you mean %q?\n", hint)
		}
		recordDispatch(outcomeUnknown)
		d.logger.Info(logging.CategoryDispatch, "unknown_command", name, nil)
		return ExitUnknownCommand
	}

	if d.stillRunning(entry.Name) {
		out.Printf("%s: still running\n", name)
		recordDispatch(outcomeBusy)
		d.logger.Warn(logging.CategoryDispatch, "command_busy", name, nil)
		return ExitBusy
	}

	start := time.Now()
	code, err := d.execute(ctx, entry, args, out)
	details := map[string]any{
		"command":     name,
		"args":        len(args),
		"exit_code":   code,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		var e *errors.Error
		reason := err.Error()
		if errors.As(err, &e) {
			reason = e.Reason()
		}
		out.Printf("error: %s: %s\n", name, reason)
		details["error"] = reason
		switch errors.GetCode(err) {
		case errors.ErrCodeCommandTimeout:
			if code == ExitCanceled {
				recordDispatch(outcomeCanceled)
			} else {
				recordDispatch(outcomeTimeout)
			}
		default:
			recordDispatch(outcomeError)
		}
		d.logger.Error(logging.CategoryDispatch, "command_failed", name, details)
		return code
	}

	if code == ExitOK {
		recordDispatch(outcomeOK)
	} else {
		recordDispatch(outcomeNonZero)
	}
	d.logger.Info(logging.CategoryDispatch, "command", name, details)
	return code
}

type result struct {
	code int
	err  error
}

func (d *Dispatcher) execute(ctx context.Context, entry Entry, args []string, out Output) (int, error) {
	cmd := entry.Command
	cmd.SetOutput(out)
	if ra, ok := cmd.(RegistryAware); ok {
		ra.SetRegistry(d.registry)
	}

	if d.timeout <= 0 {
		return invoke(ctx, cmd, args)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan result, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		code, err := invoke(ctx, cmd, args)
		done <- result{code, err}
	}()

	select {
	case r := <-done:
		return r.code, r.err
	case <-ctx.Done():
		// A command that honoured cancellation may have finished in the same instant.
		select {
		case r := <-done:
			return r.code, r.err
		default:
		}
		// The instance stays out of service until the run returns, so its
		// injected output is never swapped underneath it.
		d.abandon(entry.Name, finished)
		if ctx.Err() == context.DeadlineExceeded {
			return ExitTimeout, errors.New(errors.ErrCodeCommandTimeout, "timed out").
				WithContext("timeout", d.timeout.String())
		}
		return ExitCanceled, errors.New(errors.ErrCodeCommandTimeout, "canceled")
	}
}

func (d *Dispatcher) abandon(name string, finished <-chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.abandoned[name] = finished
}

// stillRunning reports whether an abandoned run of name has yet to return.
func (d *Dispatcher) stillRunning(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	finished, ok := d.abandoned[name]
	if !ok {
		return false
	}
	select {
	case <-finished:
		delete(d.abandoned, name)
		return false
	default:
		return true
	}
}

func invoke(ctx context.Context, cmd Command, args []string) (code int, err error) {
	defer func() {
		if r := recover(); r != nil {
			code = ExitExecutionError
			err = errors.Newf(errors.ErrCodeCommandExecution, "%v", r)
		}
	}()
	return cmd.Execute(ctx, args), nil
}

func (d *Dispatcher) suggestion(name string) string {
	if !d.suggest {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range d.registry.Names() {
		dist := levenshtein.ComputeDistance(name, candidate)
		if dist < bestDist && dist < len([]rune(name)) {
			best, bestDist = candidate, dist
		}
	}
	return best
}
