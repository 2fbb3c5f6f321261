package complete

import (
	"unicode"
	"unicode/utf16"

	"github.com/dshills/typeahead/internal/host"
)

// Reason says why a context snapshot was captured.
type Reason int

const (
	// ReasonAuto marks a snapshot taken on an automatic change event.
	ReasonAuto Reason = iota

	// ReasonManual marks an explicit completion request.
	ReasonManual

	// ReasonTriggerOnly marks a snapshot taken for a commit-character
	// confirmation, not a query cycle.
	ReasonTriggerOnly
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonAuto:
		return "auto"
	case ReasonManual:
		return "manual"
	case ReasonTriggerOnly:
		return "triggerOnly"
	default:
		return "unknown"
	}
}

// Context is an immutable snapshot of the edit state at one instant:
// buffer identity, cursor, and the line text before the cursor. The
// engine holds exactly one current Context; each new capture supersedes
// the previous one and keeps a single-hop ancestry link for diffing.
type Context struct {
	// Buffer identifies the buffer the snapshot was taken in.
	Buffer string

	// Cursor is the cursor position, Col in runes.
	Cursor host.Position

	// Col16 is the cursor column in UTF-16 code units.
	Col16 int

	// ByteCol is the cursor column in bytes.
	ByteCol int

	// CursorBeforeLine is the line text before the cursor, captured by
	// value; it never mutates after capture.
	CursorBeforeLine string

	// Reason says why the snapshot was taken.
	Reason Reason

	// Generation is the engine-assigned cycle counter. In-flight
	// fetches compare generations to detect staleness.
	Generation uint64

	prev *Context
}

// captureContext builds a Context from the host's live state. It never
// fails; out-of-range cursors clamp to the line.
func captureContext(h host.Host, reason Reason) *Context {
	pos := h.Cursor()
	runes := []rune(h.Line(pos.Row))
	col := pos.Col
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}
	before := string(runes[:col])
	return &Context{
		Buffer:           h.Buffer(),
		Cursor:           host.Position{Row: pos.Row, Col: col},
		Col16:            len(utf16.Encode([]rune(before))),
		ByteCol:          len(before),
		CursorBeforeLine: before,
		Reason:           reason,
	}
}

// Prev returns the immediately preceding context, or nil. The link is
// one hop only; it is never chained further back.
func (c *Context) Prev() *Context {
	return c.prev
}

// Changed reports whether two snapshots differ in prefix text, cursor
// position, or buffer identity. Pure; used to decide whether providers
// must be re-queried.
func Changed(a, b *Context) bool {
	if a == nil || b == nil {
		return a != b
	}
	return a.Buffer != b.Buffer ||
		a.Cursor != b.Cursor ||
		a.CursorBeforeLine != b.CursorBeforeLine
}

// WordStartCol returns the rune column where the keyword before the
// cursor begins. With no keyword it equals the cursor column.
func (c *Context) WordStartCol() int {
	runes := []rune(c.CursorBeforeLine)
	i := len(runes)
	for i > 0 && isWordRune(runes[i-1]) {
		i--
	}
	return i
}

// WordPrefix returns the keyword text between WordStartCol and the
// cursor.
func (c *Context) WordPrefix() string {
	return string([]rune(c.CursorBeforeLine)[c.WordStartCol():])
}

// isWordRune reports whether the rune belongs to a keyword.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
