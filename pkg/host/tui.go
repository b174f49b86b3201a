package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/shellpane/pkg/command"
	"github.com/odvcencio/shellpane/pkg/console"
	"github.com/odvcencio/shellpane/pkg/errors"
	"github.com/odvcencio/shellpane/pkg/logging"
	"github.com/odvcencio/shellpane/pkg/ui/backend"
	"github.com/odvcencio/shellpane/pkg/ui/terminal"
	"github.com/odvcencio/shellpane/pkg/ui/view"
)

// keyQueue is how many key events may wait while a command runs.
const keyQueue = 64

type screen struct {
	b      backend.Backend
	c      *console.Console
	view   *view.View
	opts   options
	redraw chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc // cancels the running command, nil when idle
	running string
}

// Run draws c on b and feeds it key events until the console asks to quit,
// ctx is canceled, or the backend goes away. c should already be Reset.
//
// Ctrl+C cancels a running command, or quits with ExitCanceled when none is
// running. Ctrl+D quits. Ctrl+L forces a full redraw. Output written from
// other goroutines is redrawn as it arrives.
func Run(ctx context.Context, b backend.Backend, c *console.Console, opts ...Option) error {
	if b == nil || c == nil {
		return errors.New(errors.ErrCodeInvalidInput, "backend and console are required")
	}
	o := buildOptions(opts)

	if err := b.Init(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "init backend")
	}
	defer b.Fini()

	s := &screen{
		b:      b,
		c:      c,
		view:   view.New(),
		opts:   o,
		redraw: make(chan struct{}, 1),
	}
	c.SetOnChange(s.requestRedraw)
	defer c.SetOnChange(nil)

	w, h := b.Size()
	o.logger.Info(logging.CategoryHost, "start", "tui", map[string]any{"width": w, "height": h})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	events := make(chan terminal.KeyEvent, keyQueue)

	g.Go(func() error { return s.pump(gctx, events) })
	g.Go(func() error { return s.input(gctx, events) })
	g.Go(func() error { return s.render(gctx) })
	g.Go(func() error {
		select {
		case <-c.Done():
		case <-gctx.Done():
		}
		cancel()
		// Wake the pump out of PollEvent.
		_ = b.PostEvent(terminal.InterruptEvent{})
		return nil
	})
	s.requestRedraw()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-runCtx.Done():
		select {
		case err = <-done:
		case <-time.After(shutdownGrace):
			o.logger.Warn(logging.CategoryHost, "shutdown_timeout", s.runningName(), nil)
		}
	}

	o.logger.Info(logging.CategoryHost, "stop", "tui", map[string]any{"exit_code": c.ExitCode()})
	return exitErr(ctx, c, err)
}

func exitErr(ctx context.Context, c *console.Console, err error) error {
	select {
	case <-c.Done():
		return nil
	default:
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *screen) requestRedraw() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

func (s *screen) pump(ctx context.Context, events chan<- terminal.KeyEvent) error {
	for {
		ev := s.b.PollEvent()
		if ctx.Err() != nil {
			return nil
		}
		if ev == nil {
			return errors.New(errors.ErrCodeInternal, "terminal backend closed")
		}

		switch e := ev.(type) {
		case terminal.KeyEvent:
			switch e.Key {
			case terminal.KeyCtrlC:
				if !s.interrupt() {
					s.c.RequestQuit(command.ExitCanceled)
				}
				continue
			case terminal.KeyCtrlD:
				s.c.RequestQuit(command.ExitOK)
				continue
			case terminal.KeyCtrlL:
				s.b.Sync()
				s.requestRedraw()
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return nil
			}
		case terminal.ResizeEvent:
			s.b.Sync()
			s.requestRedraw()
		case terminal.InterruptEvent:
			s.requestRedraw()
		case terminal.PasteEvent:
			s.opts.logger.Debug(logging.CategoryInput, "paste_ignored", "", map[string]any{"bytes": len(e.Text)})
		}
	}
}

func (s *screen) input(ctx context.Context, events <-chan terminal.KeyEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.Key == terminal.KeyEnter {
				s.enter(ctx, ev)
				continue
			}
			s.c.HandleKey(ctx, ev)
		}
	}
}

// enter dispatches the current line under a context Ctrl+C can cancel.
func (s *screen) enter(ctx context.Context, ev terminal.KeyEvent) {
	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := ""
	if fields := strings.Fields(s.c.CurrentLine()); len(fields) > 0 {
		name = fields[0]
	}
	s.setRunning(cancel, name)
	s.requestRedraw()

	s.c.HandleKey(cmdCtx, ev)

	s.setRunning(nil, "")
	s.requestRedraw()
}

func (s *screen) setRunning(cancel context.CancelFunc, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
	s.running = name
}

func (s *screen) runningName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// interrupt cancels the running command and reports whether there was one.
func (s *screen) interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.opts.logger.Info(logging.CategoryHost, "interrupt", s.running, nil)
	return true
}

func (s *screen) render(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.redraw:
			s.draw()
		}
	}
}

func (s *screen) draw() {
	left := s.opts.title
	if name := s.runningName(); name != "" {
		left += " · running " + name
	}
	s.view.SetStatus(left, fmt.Sprintf("%d commands", s.c.Registry().Len()))

	x, y := s.view.Render(s.b, s.c.Snapshot())
	s.b.SetCursorPos(x, y)
	s.b.Show()
}
