// Package sim provides an in-memory backend for end-to-end console tests.
package sim

import (
	"errors"
	"strings"
	"sync"
	"time"

	tcellv2 "github.com/gdamore/tcell/v2"

	"github.com/odvcencio/shellpane/pkg/ui/backend"
	"github.com/odvcencio/shellpane/pkg/ui/backend/tcell"
	"github.com/odvcencio/shellpane/pkg/ui/terminal"
)

// Backend is a testable backend using tcell's simulation screen.
type Backend struct {
	*tcell.Backend
	screen tcellv2.SimulationScreen
	mu     sync.Mutex
	width  int
	height int
}

// New creates a new simulation backend with the given dimensions.
func New(width, height int) *Backend {
	screen := tcellv2.NewSimulationScreen("")
	return &Backend{
		Backend: tcell.NewWithScreen(screen),
		screen:  screen,
		width:   width,
		height:  height,
	}
}

// Init initializes the simulated screen at the size given to New.
func (s *Backend) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Backend.Init(); err != nil {
		return err
	}
	s.screen.SetSize(s.width, s.height)
	return nil
}

// The drawing methods below share mu with the capture methods, so a test
// goroutine reading the screen never sees a cell buffer mid-update.

func (s *Backend) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.Fini()
}

func (s *Backend) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Backend.Size()
}

func (s *Backend) SetContent(x, y int, mainc rune, comb []rune, style backend.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.SetContent(x, y, mainc, comb, style)
}

func (s *Backend) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.Show()
}

func (s *Backend) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.Clear()
}

func (s *Backend) HideCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.HideCursor()
}

func (s *Backend) SetCursorPos(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.SetCursorPos(x, y)
}

func (s *Backend) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend.Sync()
}

// Resize changes the simulation screen size without posting an event.
func (s *Backend) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.screen.SetSize(width, height)
}

// InjectKey injects a key event into the simulation.
func (s *Backend) InjectKey(key terminal.Key, r rune) {
	s.inject(terminal.KeyEvent{Key: key, Rune: r})
}

// inject posts ev, waiting for room when the screen's small event queue
// is full.
func (s *Backend) inject(ev terminal.Event) {
	for i := 0; i < 1000; i++ {
		if err := s.PostEvent(ev); !errors.Is(err, tcellv2.ErrEventQFull) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// InjectKeyRune injects a regular character keypress.
func (s *Backend) InjectKeyRune(r rune) {
	s.InjectKey(terminal.KeyRune, r)
}

// InjectKeyString injects str as key events. A '\n' becomes Enter.
func (s *Backend) InjectKeyString(str string) {
	for _, r := range str {
		if r == '\n' {
			s.InjectKey(terminal.KeyEnter, 0)
			continue
		}
		s.InjectKeyRune(r)
	}
}

// InjectResize resizes the screen and posts the matching event.
func (s *Backend) InjectResize(width, height int) {
	s.Resize(width, height)
	s.inject(terminal.ResizeEvent{Width: width, Height: height})
}

// Capture captures the current screen content as a string.
func (s *Backend) Capture() string {
	s.mu.Lock()
	w, h := s.screen.Size()
	s.mu.Unlock()
	return s.CaptureRegion(0, 0, w, h)
}

// CaptureCell returns the content and style of a single cell.
func (s *Backend) CaptureCell(x, y int) (mainc rune, comb []rune, style backend.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, c, tcStyle, _ := s.screen.GetContent(x, y)
	return m, c, convertTcellStyle(tcStyle)
}

// CaptureRegion captures a rectangular region of the screen.
func (s *Backend) CaptureRegion(x, y, w, h int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, 0, h)
	for row := y; row < y+h; row++ {
		var line strings.Builder
		for col := x; col < x+w; col++ {
			mainc, comb, _, width := s.screen.GetContent(col, row)
			if mainc == 0 {
				mainc = ' '
			}
			line.WriteRune(mainc)
			for _, c := range comb {
				line.WriteRune(c)
			}
			if width > 1 {
				col += width - 1
			}
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// FindText searches for text on the screen and returns its position.
func (s *Backend) FindText(text string) (x, y int) {
	for row, line := range strings.Split(s.Capture(), "\n") {
		if col := strings.Index(line, text); col >= 0 {
			return len([]rune(line[:col])), row
		}
	}
	return -1, -1
}

// ContainsText returns true if the text appears anywhere on screen.
func (s *Backend) ContainsText(text string) bool {
	x, y := s.FindText(text)
	return x >= 0 && y >= 0
}

// WaitForText polls the screen until text appears or timeout elapses.
func (s *Backend) WaitForText(text string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if s.ContainsText(text) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// convertTcellStyle converts tcellv2.Style to backend.Style.
func convertTcellStyle(ts tcellv2.Style) backend.Style {
	fg, bg, attrs := ts.Decompose()
	style := backend.DefaultStyle().
		Foreground(convertTcellColor(fg)).
		Background(convertTcellColor(bg))

	if attrs&tcellv2.AttrBold != 0 {
		style = style.Bold(true)
	}
	if attrs&tcellv2.AttrUnderline != 0 {
		style = style.Underline(true)
	}
	if attrs&tcellv2.AttrDim != 0 {
		style = style.Dim(true)
	}
	if attrs&tcellv2.AttrReverse != 0 {
		style = style.Reverse(true)
	}
	return style
}

// convertTcellColor converts tcellv2.Color to backend.Color.
func convertTcellColor(tc tcellv2.Color) backend.Color {
	if tc == tcellv2.ColorDefault {
		return backend.ColorDefault
	}
	return backend.Color(tc & 0xFF)
}

var _ backend.Backend = (*Backend)(nil)
