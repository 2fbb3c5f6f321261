package complete

import "github.com/dshills/typeahead/internal/host"

// Format is the insertion format of an item.
type Format int

const (
	// FormatPlainText inserts the item text literally.
	FormatPlainText Format = iota

	// FormatSnippet hands the item text to the snippet-expansion
	// collaborator instead of inserting it literally.
	FormatSnippet
)

// Item is the raw completion payload a provider surfaces.
type Item struct {
	// Label is the display text.
	Label string

	// InsertText is the text to insert when set; otherwise Label.
	InsertText string

	// FilterText overrides Label for matching when set.
	FilterText string

	// SortText overrides Label for ordering when set.
	SortText string

	// Detail is optional short extra information.
	Detail string

	// Preselect asks the view to highlight this item initially.
	Preselect bool

	// Format selects literal insertion or snippet expansion.
	Format Format

	// InsertTextMode says how multi-line insertions treat indentation.
	InsertTextMode host.InsertTextMode

	// Edit, when set, is the item's own primary edit: its range
	// replaces the default word range.
	Edit *host.TextEdit

	// AdditionalEdits are secondary edits applied elsewhere in the
	// document during confirmation.
	AdditionalEdits []host.TextEdit

	// CommitCharacters confirm this item when typed while it is
	// selected.
	CommitCharacters []string
}

// Text returns the effective insertion text: the edit's text, then
// InsertText, then Label.
func (it Item) Text() string {
	if it.Edit != nil && it.Edit.NewText != "" {
		return it.Edit.NewText
	}
	if it.InsertText != "" {
		return it.InsertText
	}
	return it.Label
}

// Result is a provider's answer for one fetch.
type Result struct {
	// Items are the ordered candidates for the queried context.
	Items []Item

	// Incomplete signals the provider could return more or better
	// results if re-queried with a longer prefix.
	Incomplete bool

	// Err marks the fetch as failed; Items are ignored.
	Err error
}

// Provider is a registered completion source. Complete must invoke done
// exactly once, from any goroutine; the engine reschedules the
// continuation onto its own loop.
type Provider interface {
	// Name returns the provider's display/group name. Multiple
	// providers may share one name.
	Name() string

	// IsAvailable reports whether the provider can serve the current
	// buffer right now.
	IsAvailable() bool

	// Complete fetches candidates for the context asynchronously.
	Complete(ctx *Context, done func(Result))

	// Reset clears any cached per-cycle state.
	Reset()
}

// Resolver is an optional Provider extension for lazily filling
// expensive item fields (typically secondary edits). Resolve must
// invoke done exactly once.
type Resolver interface {
	Resolve(item Item, done func(Item))
}

// Executor is an optional Provider extension running a post-insertion
// command for a confirmed item. Execute must invoke done exactly once.
type Executor interface {
	Execute(item Item, done func())
}
