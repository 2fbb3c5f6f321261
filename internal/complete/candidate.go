package complete

import (
	"sync"

	"github.com/dshills/typeahead/internal/host"
)

// Candidate is one suggestion surfaced by a provider for a specific
// context. It is confirmable at most once; the provider retains the
// authoritative item payload, the candidate only carries a reference
// plus confirmation and resolution state.
type Candidate struct {
	mu       sync.Mutex
	item     Item
	provider Provider
	ctx      *Context
	offset   int

	confirmed bool
	resolved  bool
}

// newCandidate builds a candidate for an item fetched against ctx. The
// offset is the rune column where the completed text begins: the item
// edit's start when it targets the cursor row, otherwise the context's
// keyword start.
func newCandidate(item Item, provider Provider, ctx *Context) *Candidate {
	offset := ctx.WordStartCol()
	if item.Edit != nil && item.Edit.Range.Start.Row == ctx.Cursor.Row {
		if col := item.Edit.Range.Start.Col; col < offset {
			offset = col
		}
	}
	return &Candidate{
		item:     item,
		provider: provider,
		ctx:      ctx,
		offset:   offset,
	}
}

// Item returns the raw payload. After a successful Resolve it is the
// resolved payload.
func (c *Candidate) Item() Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.item
}

// Provider returns the owning provider.
func (c *Candidate) Provider() Provider {
	return c.provider
}

// Context returns the context the candidate was fetched against.
func (c *Candidate) Context() *Context {
	return c.ctx
}

// Offset returns the rune column where the completed text begins.
func (c *Candidate) Offset() int {
	return c.offset
}

// Word returns the committable word: the leading keyword runes of the
// insertion text, falling back to the label.
func (c *Candidate) Word() string {
	text := c.Item().Text()
	if text == "" {
		text = c.Item().Label
	}
	runes := []rune(text)
	i := 0
	for i < len(runes) && isWordRune(runes[i]) {
		i++
	}
	if i == 0 {
		return text
	}
	return string(runes[:i])
}

// FilterText returns the text used for prefix matching.
func (c *Candidate) FilterText() string {
	it := c.Item()
	if it.FilterText != "" {
		return it.FilterText
	}
	return it.Label
}

// SortText returns the text used for ordering.
func (c *Candidate) SortText() string {
	it := c.Item()
	if it.SortText != "" {
		return it.SortText
	}
	return it.Label
}

// Confirmed reports whether the candidate has been committed.
func (c *Candidate) Confirmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

// markConfirmed sets the confirmed flag. It reports false when the flag
// was already set; confirmation must then be refused.
func (c *Candidate) markConfirmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmed {
		return false
	}
	c.confirmed = true
	return true
}

// InsertRange spans from the candidate offset to the originating
// cursor: confirming in insert behavior overwrites only what the user
// typed over.
func (c *Candidate) InsertRange() host.Range {
	return host.Range{
		Start: host.Position{Row: c.ctx.Cursor.Row, Col: c.offset},
		End:   c.ctx.Cursor,
	}
}

// ReplaceRange is the item's own edit range when present, otherwise the
// insert range.
func (c *Candidate) ReplaceRange() host.Range {
	it := c.Item()
	if it.Edit != nil {
		return it.Edit.Range
	}
	return c.InsertRange()
}

// EffectiveRange picks the range for the given confirm behavior.
func (c *Candidate) EffectiveRange(behavior ConfirmBehavior) host.Range {
	if behavior == BehaviorReplace {
		return c.ReplaceRange()
	}
	return c.InsertRange()
}

// CommitCharacters returns the provider-declared commit characters.
func (c *Candidate) CommitCharacters() []string {
	return c.Item().CommitCharacters
}

// HasCommitCharacter reports whether ch confirms this candidate.
func (c *Candidate) HasCommitCharacter(ch string) bool {
	for _, cc := range c.CommitCharacters() {
		if cc == ch {
			return true
		}
	}
	return false
}

// Resolve fills lazy item fields through the provider, memoized: the
// provider is asked at most once, later calls observe the cached
// payload. done always runs exactly once, possibly synchronously.
func (c *Candidate) Resolve(done func(Item)) {
	c.mu.Lock()
	if c.resolved {
		item := c.item
		c.mu.Unlock()
		done(item)
		return
	}
	resolver, ok := c.provider.(Resolver)
	if !ok {
		c.resolved = true
		item := c.item
		c.mu.Unlock()
		done(item)
		return
	}
	item := c.item
	c.mu.Unlock()

	resolver.Resolve(item, func(resolved Item) {
		c.mu.Lock()
		if !c.resolved {
			c.resolved = true
			c.item = resolved
		}
		final := c.item
		c.mu.Unlock()
		done(final)
	})
}

// Execute runs the item's post-insertion command through the provider,
// when it has one. done always runs exactly once.
func (c *Candidate) Execute(done func()) {
	if executor, ok := c.provider.(Executor); ok {
		executor.Execute(c.Item(), done)
		return
	}
	done()
}
