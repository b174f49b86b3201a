// Package command defines the console command contract, the catalogs commands
// are discovered from, the registry discovery produces, and the dispatcher that
// turns a typed line into a command invocation.
package command

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Exit codes returned by Dispatch in addition to whatever a command returns.
const (
	ExitOK             = 0
	ExitExecutionError = 70  // command panicked
	ExitBusy           = 75  // an abandoned run of the command has not returned yet
	ExitTimeout        = 124 // command ignored its deadline
	ExitUnknownCommand = 127
	ExitCanceled       = 130
)

// Output is the sink a command writes to. The console implements it; writes
// from any goroutine are serialized with keystroke handling.
type Output interface {
	io.Writer
	Print(a ...any)
	Println(a ...any)
	Printf(format string, a ...any)
}

// Command is the capability every console command satisfies.
type Command interface {
	// SetOutput injects the console the command writes to. It is called
	// before every Execute.
	SetOutput(out Output)

	// Execute runs the command with the tokens that followed its name and
	// returns an exit code. Long-running commands should return once ctx is done.
	Execute(ctx context.Context, args []string) int
}

// Describer is implemented by commands that provide a one-line description
// for help listings.
type Describer interface {
	Description() string
}

// RegistryAware commands receive the registry they were dispatched from.
type RegistryAware interface {
	SetRegistry(reg *Registry)
}

// Base carries the injected output. Embedding it supplies SetOutput.
type Base struct {
	Out Output
}

// SetOutput implements Command.
func (b *Base) SetOutput(out Output) {
	b.Out = out
}

// Output returns the injected output, or a discarding one before injection.
func (b *Base) Output() Output {
	if b.Out == nil {
		return NewOutput(io.Discard)
	}
	return b.Out
}

// writerOutput adapts an io.Writer to Output.
type writerOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewOutput wraps w so it can be handed to commands. Writes are serialized.
func NewOutput(w io.Writer) Output {
	return &writerOutput{w: w}
}

func (o *writerOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *writerOutput) Print(a ...any) {
	fmt.Fprint(o, a...)
}

func (o *writerOutput) Println(a ...any) {
	fmt.Fprintln(o, a...)
}

func (o *writerOutput) Printf(format string, a ...any) {
	fmt.Fprintf(o, format, a...)
}
