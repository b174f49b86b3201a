package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/odvcencio/shellpane/pkg/console"
	"github.com/odvcencio/shellpane/pkg/logging"
	"github.com/odvcencio/shellpane/pkg/ui/terminal"
)

// RunLines drives c from a line-oriented stream. Each line of r is typed
// into the console rune by rune and followed by Enter. c must have been
// created WithMirror(w) so command output reaches w; RunLines itself writes
// only prompts (and, WithEcho, the input lines).
//
// It returns nil at end of input or when the console asks to quit, and
// ctx.Err() when ctx is canceled first.
func RunLines(ctx context.Context, r io.Reader, w io.Writer, c *console.Console, opts ...Option) error {
	o := buildOptions(opts)
	o.logger.Info(logging.CategoryHost, "start", "lines", nil)

	type scanned struct {
		line string
		err  error
		eof  bool
	}
	// The reader is not part of shutdown: a blocked Read cannot be interrupted.
	lines := make(chan scanned)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- scanned{line: sc.Text()}:
			case <-ctx.Done():
				return
			case <-c.Done():
				return
			}
		}
		select {
		case lines <- scanned{err: sc.Err(), eof: true}:
		case <-ctx.Done():
		case <-c.Done():
		}
	}()

	prompt := func() {
		fmt.Fprint(w, c.Delimiter())
	}
	prompt()

	stop := func() error {
		o.logger.Info(logging.CategoryHost, "stop", "lines", map[string]any{"exit_code": c.ExitCode()})
		return nil
	}
	for {
		// A quit request wins over input that is already waiting.
		select {
		case <-c.Done():
			return stop()
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Done():
			return stop()
		case in := <-lines:
			if in.eof {
				fmt.Fprintln(w)
				o.logger.Info(logging.CategoryHost, "stop", "lines", map[string]any{"eof": true})
				return in.err
			}
			line := strings.TrimSuffix(in.line, "\r")
			if o.echo {
				fmt.Fprintln(w, line)
			}
			c.TypeString(ctx, line)
			c.HandleKey(ctx, terminal.KeyEvent{Key: terminal.KeyEnter})

			select {
			case <-c.Done():
			default:
				prompt()
			}
		}
	}
}
