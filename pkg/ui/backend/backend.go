// Package backend defines the screen the interactive console host draws on.
// The tcell implementation drives a real terminal; the sim implementation
// backs end-to-end tests with an in-memory screen.
package backend

import "github.com/odvcencio/shellpane/pkg/ui/terminal"

// Backend is the terminal abstraction layer.
type Backend interface {
	// Init enters raw mode and the alternate screen.
	Init() error

	// Fini restores the terminal.
	Fini()

	// Size returns the current terminal dimensions.
	Size() (width, height int)

	// SetContent sets a cell at position (x, y). comb holds combining
	// characters and may be nil.
	SetContent(x, y int, mainc rune, comb []rune, style Style)

	// Show flushes pending cell changes to the terminal.
	Show()

	// Clear blanks every cell.
	Clear()

	// HideCursor hides the terminal cursor.
	HideCursor()

	// SetCursorPos shows the cursor at (x, y).
	SetCursorPos(x, y int)

	// PollEvent blocks until an event is available. It returns nil once
	// the backend has been finalized.
	PollEvent() terminal.Event

	// PostEvent queues an event for PollEvent. It is safe to call from
	// any goroutine.
	PostEvent(ev terminal.Event) error

	// Sync forces a full redraw on next Show.
	Sync()
}

// RenderTarget is the drawing subset of Backend the view renders into.
type RenderTarget interface {
	Size() (width, height int)
	SetContent(x, y int, mainc rune, comb []rune, style Style)
}

// SubTarget wraps a RenderTarget with an offset for sub-region rendering.
type SubTarget struct {
	parent  RenderTarget
	offsetX int
	offsetY int
	width   int
	height  int
}

// NewSubTarget creates a sub-region of a RenderTarget.
func NewSubTarget(parent RenderTarget, x, y, w, h int) *SubTarget {
	return &SubTarget{
		parent:  parent,
		offsetX: x,
		offsetY: y,
		width:   w,
		height:  h,
	}
}

// Size returns the sub-target dimensions.
func (s *SubTarget) Size() (width, height int) {
	return s.width, s.height
}

// SetContent sets content with coordinates relative to the sub-target.
func (s *SubTarget) SetContent(x, y int, mainc rune, comb []rune, style Style) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.parent.SetContent(s.offsetX+x, s.offsetY+y, mainc, comb, style)
}

// Fill sets every cell of target to r in style.
func Fill(target RenderTarget, r rune, style Style) {
	w, h := target.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			target.SetContent(x, y, r, nil, style)
		}
	}
}
