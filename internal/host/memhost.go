package host

import (
	"strings"
	"sync"
)

// MemHost is an in-memory Host. It records undo breaks and applied
// secondary edits so tests can assert on the exact edit sequence.
//
// MemHost is safe for concurrent use.
type MemHost struct {
	mu         sync.Mutex
	name       string
	lines      []string
	cursor     Position
	insertMode bool

	// ReindentLine, when set, computes the reindented form of a line.
	// NeedsReindent reports true whenever it would change the line.
	ReindentLine func(line string) string

	undoBreaks int
	edits      []TextEdit
}

// NewMemHost creates a MemHost over the given text, cursor at origin,
// insert mode on.
func NewMemHost(name, text string) *MemHost {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &MemHost{
		name:       name,
		lines:      lines,
		insertMode: true,
	}
}

// Buffer returns the host's buffer identity.
func (m *MemHost) Buffer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// SetBuffer switches the buffer identity, keeping content.
func (m *MemHost) SetBuffer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// Cursor returns the cursor position.
func (m *MemHost) Cursor() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// SetCursor moves the cursor, clamped to the buffer.
func (m *MemHost) SetCursor(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = m.clamp(pos)
}

// Line returns the text of row, or "" when out of range.
func (m *MemHost) Line(row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 0 || row >= len(m.lines) {
		return ""
	}
	return m.lines[row]
}

// LineCount returns the number of lines.
func (m *MemHost) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

// Text returns the full buffer text.
func (m *MemHost) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.lines, "\n")
}

// InsertMode reports whether text insertion is active.
func (m *MemHost) InsertMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertMode
}

// SetInsertMode toggles insert mode.
func (m *MemHost) SetInsertMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertMode = on
}

// Insert inserts text at the cursor, splitting on newlines.
func (m *MemHost) Insert(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.Split(text, "\n")
	line := m.lines[m.cursor.Row]
	head := string([]rune(line)[:m.cursor.Col])
	tail := string([]rune(line)[m.cursor.Col:])

	if len(parts) == 1 {
		m.lines[m.cursor.Row] = head + parts[0] + tail
		m.cursor.Col += len([]rune(parts[0]))
		return
	}

	newLines := make([]string, 0, len(m.lines)+len(parts)-1)
	newLines = append(newLines, m.lines[:m.cursor.Row]...)
	newLines = append(newLines, head+parts[0])
	newLines = append(newLines, parts[1:len(parts)-1]...)
	last := parts[len(parts)-1]
	newLines = append(newLines, last+tail)
	newLines = append(newLines, m.lines[m.cursor.Row+1:]...)

	m.lines = newLines
	m.cursor.Row += len(parts) - 1
	m.cursor.Col = len([]rune(last))
}

// DeleteBefore deletes n runes before the cursor on the cursor line.
func (m *MemHost) DeleteBefore(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return
	}
	if n > m.cursor.Col {
		n = m.cursor.Col
	}
	runes := []rune(m.lines[m.cursor.Row])
	m.lines[m.cursor.Row] = string(runes[:m.cursor.Col-n]) + string(runes[m.cursor.Col:])
	m.cursor.Col -= n
}

// DeleteAfter deletes n runes after the cursor on the cursor line.
func (m *MemHost) DeleteAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return
	}
	runes := []rune(m.lines[m.cursor.Row])
	if m.cursor.Col+n > len(runes) {
		n = len(runes) - m.cursor.Col
	}
	m.lines[m.cursor.Row] = string(runes[:m.cursor.Col]) + string(runes[m.cursor.Col+n:])
}

// UndoBreak records an undo boundary.
func (m *MemHost) UndoBreak() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undoBreaks++
}

// UndoBreaks returns the number of recorded undo boundaries.
func (m *MemHost) UndoBreaks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.undoBreaks
}

// ApplyEdit applies a secondary edit and records it.
func (m *MemHost) ApplyEdit(edit TextEdit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edits = append(m.edits, edit)

	start := m.clamp(edit.Range.Start)
	end := m.clamp(edit.Range.End)
	if end.Before(start) {
		start, end = end, start
	}

	startLine := []rune(m.lines[start.Row])
	endLine := []rune(m.lines[end.Row])
	head := string(startLine[:min(start.Col, len(startLine))])
	tail := string(endLine[min(end.Col, len(endLine)):])

	merged := strings.Split(head+edit.NewText+tail, "\n")
	newLines := make([]string, 0, len(m.lines))
	newLines = append(newLines, m.lines[:start.Row]...)
	newLines = append(newLines, merged...)
	newLines = append(newLines, m.lines[end.Row+1:]...)
	m.lines = newLines

	m.cursor = m.clamp(m.cursor)
}

// AppliedEdits returns the secondary edits applied so far.
func (m *MemHost) AppliedEdits() []TextEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TextEdit, len(m.edits))
	copy(out, m.edits)
	return out
}

// NeedsReindent reports whether ReindentLine would change the row.
func (m *MemHost) NeedsReindent(row int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReindentLine == nil || row < 0 || row >= len(m.lines) {
		return false
	}
	return m.ReindentLine(m.lines[row]) != m.lines[row]
}

// Reindent applies ReindentLine to the row, keeping the cursor at the
// same distance from the line end.
func (m *MemHost) Reindent(row int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReindentLine == nil || row < 0 || row >= len(m.lines) {
		return
	}
	old := m.lines[row]
	next := m.ReindentLine(old)
	if next == old {
		return
	}
	m.lines[row] = next
	if m.cursor.Row == row {
		fromEnd := len([]rune(old)) - m.cursor.Col
		m.cursor.Col = len([]rune(next)) - fromEnd
		m.cursor = m.clamp(m.cursor)
	}
}

func (m *MemHost) clamp(pos Position) Position {
	if pos.Row < 0 {
		pos.Row = 0
	}
	if pos.Row >= len(m.lines) {
		pos.Row = len(m.lines) - 1
	}
	if pos.Col < 0 {
		pos.Col = 0
	}
	if n := len([]rune(m.lines[pos.Row])); pos.Col > n {
		pos.Col = n
	}
	return pos
}
