package console

import (
	"context"

	"github.com/odvcencio/shellpane/pkg/logging"
	"github.com/odvcencio/shellpane/pkg/ui/terminal"
)

// HandleKey applies one key event and reports whether it was consumed.
//
// Printable runes extend the current line, Backspace removes its last rune
// (and is swallowed when the line is empty), Enter dispatches the line and
// prompts again. Everything else is ignored. Events are handled one at a
// time; a second caller blocks until the first event, including any command
// it dispatched, has finished.
func (c *Console) HandleKey(ctx context.Context, ev terminal.KeyEvent) bool {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()

	switch {
	case ev.Key == terminal.KeyEnter:
		c.enter(ctx)
		return true

	case ev.Key == terminal.KeyBackspace:
		removed := false
		c.mutate(func(b *LineBuffer) { removed = b.Backspace() })
		if !removed {
			c.logger.Debug(logging.CategoryInput, "backspace_refused", "", nil)
		}
		return true

	case ev.Printable():
		c.mutate(func(b *LineBuffer) { b.Append(string(ev.Rune)) })
		return true
	}

	c.logger.Debug(logging.CategoryInput, "key_ignored", ev.Key.String(), nil)
	return false
}

// TypeString feeds s through HandleKey one rune at a time.
func (c *Console) TypeString(ctx context.Context, s string) {
	for _, r := range s {
		c.HandleKey(ctx, terminal.KeyEvent{Key: terminal.KeyRune, Rune: r})
	}
}

func (c *Console) enter(ctx context.Context) {
	var line string
	c.mutate(func(b *LineBuffer) { line = b.CommitLine() })

	c.dispatcher.Dispatch(ctx, line, c)

	c.mutate(func(b *LineBuffer) {
		// clear leaves a fresh prompt behind.
		if !b.Prompted() {
			b.Prompt()
		}
	})
}
