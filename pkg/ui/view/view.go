// Package view draws a console snapshot onto a backend render target: the
// tail of the buffer, wrapped to the screen width, above a one-row status bar.
package view

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/shellpane/pkg/console"
	"github.com/odvcencio/shellpane/pkg/ui/backend"
)

const tabWidth = 8

// View renders console snapshots.
type View struct {
	TextStyle   backend.Style
	StatusStyle backend.Style

	statusLeft  string
	statusRight string
}

// New returns a view with a reverse-video status bar.
func New() *View {
	return &View{
		TextStyle:   backend.DefaultStyle(),
		StatusStyle: backend.DefaultStyle().Reverse(true),
	}
}

// SetStatus sets the text shown at the left and right ends of the status bar.
func (v *View) SetStatus(left, right string) {
	v.statusLeft = left
	v.statusRight = right
}

// Render draws snap into target and returns where the cursor belongs.
// With fewer than two rows the status bar is dropped.
func (v *View) Render(target backend.RenderTarget, snap console.Snapshot) (cursorX, cursorY int) {
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	backend.Fill(target, ' ', v.TextStyle)

	bodyHeight := h
	if h >= 2 {
		bodyHeight = h - 1
		v.renderStatus(backend.NewSubTarget(target, 0, h-1, w, 1))
	}
	body := backend.NewSubTarget(target, 0, 0, w, bodyHeight)

	rows := Wrap(snap.Text, w)
	// The cursor sits after the last rune; a full last row pushes it down.
	last := rows[len(rows)-1]
	cursorX = runewidth.StringWidth(last)
	if cursorX >= w {
		rows = append(rows, "")
		cursorX = 0
	}
	if len(rows) > bodyHeight {
		rows = rows[len(rows)-bodyHeight:]
	}
	for y, row := range rows {
		drawString(body, 0, y, row, v.TextStyle)
	}
	return cursorX, len(rows) - 1
}

func (v *View) renderStatus(bar backend.RenderTarget) {
	w, _ := bar.Size()
	backend.Fill(bar, ' ', v.StatusStyle)

	right := ""
	if v.statusRight != "" {
		right = v.statusRight + " "
	}
	rightWidth := runewidth.StringWidth(right)
	left := " " + v.statusLeft
	if room := w - rightWidth - 1; room > 0 {
		left = runewidth.Truncate(left, room, "…")
	} else {
		left = runewidth.Truncate(left, w, "…")
		right = ""
	}
	drawString(bar, 0, 0, left, v.StatusStyle)
	if right != "" {
		drawString(bar, w-rightWidth, 0, right, v.StatusStyle)
	}
}

// Wrap splits text into display rows no wider than width cells. Newlines
// end a row, tabs expand to the next multiple of eight columns, and wide
// runes never straddle a row boundary. The result always has at least one row.
func Wrap(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		rows = append(rows, wrapLine(line, width)...)
	}
	return rows
}

func wrapLine(line string, width int) []string {
	var (
		rows []string
		cur  strings.Builder
		col  int
	)
	flush := func() {
		rows = append(rows, cur.String())
		cur.Reset()
		col = 0
	}
	for _, r := range line {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			if col+n > width {
				n = width - col
			}
			cur.WriteString(strings.Repeat(" ", n))
			col += n
			if col >= width {
				flush()
			}
			continue
		}
		rw := runewidth.RuneWidth(r)
		if col > 0 && col+rw > width {
			flush()
		}
		cur.WriteRune(r)
		col += rw
	}
	if cur.Len() > 0 || len(rows) == 0 {
		flush()
	}
	return rows
}

// drawString writes s starting at (x, y). Zero-width runes combine with the
// cell before them.
func drawString(target backend.RenderTarget, x, y int, s string, style backend.Style) {
	col := x
	prevCol := -1
	var prev rune
	var comb []rune
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			if prevCol >= 0 {
				comb = append(comb, r)
				target.SetContent(prevCol, y, prev, comb, style)
			}
			continue
		}
		target.SetContent(col, y, r, nil, style)
		prev, prevCol, comb = r, col, nil
		col += rw
	}
}
