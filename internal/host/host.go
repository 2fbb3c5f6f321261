package host

// Position is a location in a buffer. Row is zero-based. Col counts
// runes from the start of the line.
type Position struct {
	Row int
	Col int
}

// Before reports whether p is strictly before other.
func (p Position) Before(other Position) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// SpansRow reports whether the range touches the given row.
func (r Range) SpansRow(row int) bool {
	return r.Start.Row <= row && row <= r.End.Row
}

// TextEdit replaces the text covered by Range with NewText.
type TextEdit struct {
	Range   Range
	NewText string
}

// InsertTextMode says how multi-line insertion text relates to the
// current indentation.
type InsertTextMode int

const (
	// InsertTextAsIs inserts continuation lines untouched.
	InsertTextAsIs InsertTextMode = iota

	// InsertTextAdjustIndentation prefixes continuation lines with the
	// cursor line's leading whitespace.
	InsertTextAdjustIndentation
)

// Host is the document the engine edits. All methods operate on the
// host's current buffer and cursor; the engine never holds buffer text
// beyond a captured context snapshot.
type Host interface {
	// Buffer returns the identity of the current buffer.
	Buffer() string

	// Cursor returns the current cursor position.
	Cursor() Position

	// Line returns the text of the given row, without a line ending.
	Line(row int) string

	// LineCount returns the number of lines in the buffer.
	LineCount() int

	// InsertMode reports whether the host is accepting text insertion.
	InsertMode() bool

	// Insert inserts text at the cursor and advances it. Newlines split
	// the line.
	Insert(text string)

	// DeleteBefore deletes n runes before the cursor on the cursor
	// line, clamped at the line start.
	DeleteBefore(n int)

	// DeleteAfter deletes n runes after the cursor on the cursor line,
	// clamped at the line end.
	DeleteAfter(n int)

	// UndoBreak marks an undo boundary so surrounding edits group into
	// one undo step.
	UndoBreak()

	// ApplyEdit applies a secondary edit outside the primary insertion
	// flow.
	ApplyEdit(edit TextEdit)

	// NeedsReindent reports whether the given row should be reindented
	// before change processing continues.
	NeedsReindent(row int) bool

	// Reindent reindents the given row in place.
	Reindent(row int)
}
