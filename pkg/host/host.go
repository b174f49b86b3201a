// Package host connects a Console to the outside world: Run drives it from
// a full-screen terminal backend, RunLines from a plain line stream.
package host

import (
	"time"

	"github.com/odvcencio/shellpane/pkg/logging"
)

// shutdownGrace bounds how long Run waits for a command that ignores
// cancellation once the console is closing.
const shutdownGrace = 2 * time.Second

type options struct {
	title  string
	logger *logging.Logger
	echo   bool
}

// Option configures a host.
type Option func(*options)

// WithTitle sets the text at the left of the status bar.
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// WithLogger records host lifecycle events.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEcho makes RunLines write each input line after the prompt, for
// input that does not come from an echoing terminal.
func WithEcho(on bool) Option {
	return func(o *options) {
		o.echo = on
	}
}

func buildOptions(opts []Option) options {
	o := options{title: "shellpane"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
