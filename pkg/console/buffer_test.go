package console

import (
	"testing"
	"testing/quick"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReset(t *testing.T) *LineBuffer {
	t.Helper()
	b := NewLineBuffer(DefaultDelimiter)
	b.Reset()
	return b
}

func assertInvariants(t *testing.T, b *LineBuffer) {
	t.Helper()
	require.LessOrEqual(t, b.promptStart, b.LineStart())
	require.LessOrEqual(t, b.LineStart(), b.CursorOffset())
	require.Equal(t, b.Len(), b.CursorOffset())
	require.Equal(t, len([]rune(b.CurrentLine())), b.CursorOffset()-b.LineStart())
}

func TestResetWritesDelimiter(t *testing.T) {
	b := newReset(t)

	assert.Equal(t, " > ", b.String())
	assert.Equal(t, 3, b.LineStart())
	assert.Equal(t, 3, b.CursorOffset())
	assert.Empty(t, b.CurrentLine())
	assert.True(t, b.Prompted())
	assertInvariants(t, b)
}

func TestResetIdempotent(t *testing.T) {
	once := newReset(t)

	twice := NewLineBuffer(DefaultDelimiter)
	twice.Append("junk")
	twice.Reset()
	twice.Reset()

	assert.Equal(t, once.String(), twice.String())
	assert.Equal(t, once.LineStart(), twice.LineStart())
	assert.Equal(t, once.CursorOffset(), twice.CursorOffset())
}

func TestBackspaceAtLineStartRefused(t *testing.T) {
	b := newReset(t)
	b.Append("ab")
	require.True(t, b.Backspace())
	require.True(t, b.Backspace())

	lineStart, length := b.LineStart(), b.Len()
	for i := 0; i < 10; i++ {
		assert.False(t, b.Backspace())
		assert.Equal(t, lineStart, b.LineStart())
		assert.Equal(t, length, b.Len())
	}
	assert.Equal(t, " > ", b.String(), "delimiter is never erased")
	assertInvariants(t, b)
}

func TestAppendBackspaceInverse(t *testing.T) {
	property := func(prefix string, c rune) bool {
		if !unicode.IsGraphic(c) {
			return true
		}
		b := newReset(t)
		b.Append(prefix)
		line, cursor := b.CurrentLine(), b.CursorOffset()

		b.Append(string(c))
		if !b.Backspace() {
			return false
		}
		return b.CurrentLine() == line && b.CursorOffset() == cursor
	}
	require.NoError(t, quick.Check(property, nil))
}

func TestAppendCountsRunes(t *testing.T) {
	b := newReset(t)
	b.Append("héllo")

	assert.Equal(t, 8, b.CursorOffset())
	assert.Equal(t, "héllo", b.CurrentLine())
	require.True(t, b.Backspace())
	assert.Equal(t, "héll", b.CurrentLine())
	assertInvariants(t, b)
}

func TestAppendAtLineStartKeepsTypedInput(t *testing.T) {
	b := newReset(t)
	b.Append("partial")

	b.AppendAtLineStart("progress 50%\n")

	assert.Equal(t, "progress 50%\n > partial", b.String())
	assert.Equal(t, "partial", b.CurrentLine())
	assertInvariants(t, b)

	b.AppendAtLineStart("")
	assert.Equal(t, "progress 50%\n > partial", b.String())
}

func TestCommitLineAndPrompt(t *testing.T) {
	b := newReset(t)
	b.Append("echo hi")

	line := b.CommitLine()

	assert.Equal(t, "echo hi", line)
	assert.Equal(t, " > echo hi\n", b.String())
	assert.Empty(t, b.CurrentLine())
	assert.False(t, b.Prompted())
	assert.False(t, b.Backspace(), "nothing to erase after commit")

	b.AppendAtLineStart("hi\n")
	b.Prompt()

	assert.Equal(t, " > echo hi\nhi\n > ", b.String())
	assert.True(t, b.Prompted())
	assertInvariants(t, b)
}

func TestSetDelimiterAppliesToNextPrompt(t *testing.T) {
	b := newReset(t)
	b.SetDelimiter("$ ")
	assert.Equal(t, " > ", b.String())

	b.CommitLine()
	b.Prompt()
	assert.Equal(t, " > \n$ ", b.String())
	assert.Equal(t, "$ ", b.Delimiter())
}
