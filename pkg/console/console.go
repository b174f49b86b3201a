// Package console implements the embeddable line console: an append-only
// text buffer, the keystroke state machine that edits it, and the output sink
// commands write to.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/odvcencio/shellpane/pkg/command"
	"github.com/odvcencio/shellpane/pkg/logging"
)

// Console owns a LineBuffer and feeds completed lines to a dispatcher.
// It implements command.Output, so commands and other goroutines can write
// to it at any time.
type Console struct {
	// inputMu is held for the whole of one key event, dispatch included.
	inputMu sync.Mutex
	// bufMu guards buf. It is never held while a command runs.
	bufMu sync.Mutex
	buf   *LineBuffer

	dispatcher *command.Dispatcher
	logger     *logging.Logger
	onChange   func()
	mirror     io.Writer

	quitOnce sync.Once
	quit     chan struct{}
	exitCode int
}

// Option configures a Console.
type Option func(*Console)

// WithDelimiter overrides DefaultDelimiter.
func WithDelimiter(delimiter string) Option {
	return func(c *Console) {
		c.buf.SetDelimiter(delimiter)
	}
}

// WithLogger records input handling to the session log.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithOnChange registers a callback run after every buffer change, outside
// the buffer lock. Hosts use it to schedule a redraw.
func WithOnChange(fn func()) Option {
	return func(c *Console) {
		c.onChange = fn
	}
}

// WithMirror copies every output write to w as well. Line-oriented hosts
// use it instead of redrawing the buffer.
func WithMirror(w io.Writer) Option {
	return func(c *Console) {
		c.mirror = command.NewOutput(w)
	}
}

// New creates a console dispatching to d. The host must call Reset once
// before routing key events to it.
func New(d *command.Dispatcher, opts ...Option) *Console {
	if d == nil {
		d = command.NewDispatcher(nil)
	}
	c := &Console{
		buf:        NewLineBuffer(DefaultDelimiter),
		dispatcher: d,
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnChange replaces the change callback.
func (c *Console) SetOnChange(fn func()) {
	c.bufMu.Lock()
	c.onChange = fn
	c.bufMu.Unlock()
}

// Reset clears the console down to a single prompt.
func (c *Console) Reset() {
	c.mutate(func(b *LineBuffer) { b.Reset() })
}

// Write inserts p above the prompt. It implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.mutate(func(b *LineBuffer) { b.AppendAtLineStart(string(p)) })
	if c.mirror != nil {
		if _, err := c.mirror.Write(p); err != nil {
			c.logger.Warn(logging.CategoryHost, "mirror_write", err.Error(), nil)
		}
	}
	return len(p), nil
}

// Print implements command.Output.
func (c *Console) Print(a ...any) {
	fmt.Fprint(c, a...)
}

// Println implements command.Output.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c, a...)
}

// Printf implements command.Output.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c, format, a...)
}

// PrintLines writes each line followed by a newline as one update.
func (c *Console) PrintLines(lines []string) {
	if len(lines) == 0 {
		return
	}
	c.Print(strings.Join(lines, "\n") + "\n")
}

// Delimiter returns the current prompt string.
func (c *Console) Delimiter() string {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.buf.Delimiter()
}

// SetDelimiter changes the prompt used for subsequent lines.
func (c *Console) SetDelimiter(delimiter string) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	c.buf.SetDelimiter(delimiter)
}

// String returns the full buffer text.
func (c *Console) String() string {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.buf.String()
}

// CurrentLine returns the text typed since the last prompt.
func (c *Console) CurrentLine() string {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.buf.CurrentLine()
}

// Snapshot is a consistent view of the buffer for rendering.
type Snapshot struct {
	Text      string
	LineStart int
	Cursor    int
}

// Snapshot copies the buffer state under the lock.
func (c *Console) Snapshot() Snapshot {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return Snapshot{
		Text:      c.buf.String(),
		LineStart: c.buf.LineStart(),
		Cursor:    c.buf.CursorOffset(),
	}
}

// Registry returns the commands this console dispatches to.
func (c *Console) Registry() *command.Registry {
	return c.dispatcher.Registry()
}

// RequestQuit asks the host to shut down with the given exit code. Only the
// first request counts.
func (c *Console) RequestQuit(code int) {
	c.quitOnce.Do(func() {
		c.exitCode = code
		close(c.quit)
		c.logger.Info(logging.CategoryHost, "quit_requested", "", map[string]any{"exit_code": code})
	})
}

// Done is closed once a quit has been requested.
func (c *Console) Done() <-chan struct{} {
	return c.quit
}

// ExitCode is the code passed to RequestQuit. Read it after Done is closed.
func (c *Console) ExitCode() int {
	select {
	case <-c.quit:
		return c.exitCode
	default:
		return 0
	}
}

func (c *Console) mutate(fn func(b *LineBuffer)) {
	c.bufMu.Lock()
	fn(c.buf)
	notify := c.onChange
	c.bufMu.Unlock()

	if notify != nil {
		notify()
	}
}

var _ command.Output = (*Console)(nil)
