package complete

import "github.com/dshills/typeahead/internal/host"

// ConfirmBehavior selects which range a confirmation overwrites.
type ConfirmBehavior int

const (
	// BehaviorInsert overwrites only the keyword the user typed over.
	BehaviorInsert ConfirmBehavior = iota

	// BehaviorReplace overwrites the item's full declared edit range.
	BehaviorReplace
)

// String returns the behavior name.
func (b ConfirmBehavior) String() string {
	if b == BehaviorReplace {
		return "replace"
	}
	return "insert"
}

// View is the presentation surface the engine publishes to. The engine
// drives it from the task loop; implementations render however they
// like but answer selection queries synchronously.
type View interface {
	// Open shows (or refreshes) the menu with the filtered candidates.
	// ctx is the live context the candidates were filtered against, so
	// the view can anchor itself without re-reading the document.
	Open(ctx *Context, candidates []*Candidate)

	// Close hides the menu and drops its candidates.
	Close()

	// Visible reports whether the menu is showing.
	Visible() bool

	// Ready reports whether the menu both is visible and has at least
	// one candidate.
	Ready() bool

	// Selected returns the explicitly selected candidate, or nil when
	// the selection is on the typed text itself.
	Selected() *Candidate

	// First returns the first listed candidate, or nil when empty.
	First() *Candidate

	// SelectNext moves the selection down, wrapping past the end back
	// to the typed text.
	SelectNext()

	// SelectPrev moves the selection up, wrapping past the top.
	SelectPrev()
}

// Expander expands snippet bodies at the cursor. The engine deletes
// the committed placeholder word before calling Expand, so the expander
// starts from a clean insertion point.
type Expander interface {
	Expand(body string, mode host.InsertTextMode) error
}
