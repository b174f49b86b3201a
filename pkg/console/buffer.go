package console

// DefaultDelimiter is the prompt written at the start of every input line.
const DefaultDelimiter = " > "

// LineBuffer is the append-only text of a console plus the bookkeeping for
// the line currently being edited. Offsets count runes.
//
// The buffer is laid out as
//
//	[history ...][delimiter][current line]
//	             ^promptStart ^lineStart  ^cursor == Len()
//
// LineBuffer is not safe for concurrent use; Console serializes access.
type LineBuffer struct {
	text        []rune
	delimiter   string
	promptStart int
	lineStart   int
	prompted    bool
}

// NewLineBuffer creates an empty buffer. Call Reset before first use.
func NewLineBuffer(delimiter string) *LineBuffer {
	return &LineBuffer{delimiter: delimiter}
}

// Append writes text at the end of the buffer, extending the current line.
func (b *LineBuffer) Append(text string) {
	b.text = append(b.text, []rune(text)...)
}

// AppendAtLineStart inserts text in front of the prompt so output appears
// above whatever the user is typing. When no prompt is showing it is a plain
// append.
func (b *LineBuffer) AppendAtLineStart(text string) {
	ins := []rune(text)
	if len(ins) == 0 {
		return
	}
	at := b.promptStart
	b.text = append(b.text[:at], append(ins, b.text[at:]...)...)
	b.promptStart += len(ins)
	b.lineStart += len(ins)
}

// Reset discards everything and starts over with a fresh prompt.
func (b *LineBuffer) Reset() {
	b.text = []rune(b.delimiter)
	b.promptStart = 0
	b.lineStart = len(b.text)
	b.prompted = true
}

// Prompt writes the delimiter at the end and starts a new input line.
func (b *LineBuffer) Prompt() {
	b.promptStart = len(b.text)
	b.text = append(b.text, []rune(b.delimiter)...)
	b.lineStart = len(b.text)
	b.prompted = true
}

// Prompted reports whether a prompt is waiting for input.
func (b *LineBuffer) Prompted() bool {
	return b.prompted
}

// CommitLine ends the current line with a newline and returns what was typed.
// The buffer is left without a prompt until Prompt is called.
func (b *LineBuffer) CommitLine() string {
	line := b.CurrentLine()
	b.text = append(b.text, '\n')
	b.promptStart = len(b.text)
	b.lineStart = len(b.text)
	b.prompted = false
	return line
}

// CurrentLine returns the text typed since the last prompt.
func (b *LineBuffer) CurrentLine() string {
	return string(b.text[b.lineStart:])
}

// Backspace removes the last typed rune. It refuses, leaving the buffer
// untouched, when the current line is empty.
func (b *LineBuffer) Backspace() bool {
	if len(b.text) == b.lineStart {
		return false
	}
	b.text = b.text[:len(b.text)-1]
	return true
}

// String returns the whole buffer.
func (b *LineBuffer) String() string {
	return string(b.text)
}

// Len returns the buffer length in runes.
func (b *LineBuffer) Len() int {
	return len(b.text)
}

// CursorOffset is the insertion point, always the end of the buffer.
func (b *LineBuffer) CursorOffset() int {
	return len(b.text)
}

// LineStart is the offset where the current line begins.
func (b *LineBuffer) LineStart() int {
	return b.lineStart
}

// Delimiter returns the prompt string.
func (b *LineBuffer) Delimiter() string {
	return b.delimiter
}

// SetDelimiter changes the prompt used from the next Prompt or Reset on.
func (b *LineBuffer) SetDelimiter(delimiter string) {
	b.delimiter = delimiter
}
