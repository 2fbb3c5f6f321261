package complete

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/typeahead/internal/host"
	"github.com/dshills/typeahead/internal/timer"
)

var errFetch = errors.New("fetch failed")

// fakeProvider delivers canned items, optionally after a fake-clock
// delay.
type fakeProvider struct {
	mu          sync.Mutex
	name        string
	unavailable bool
	clock       timer.Clock
	delay       time.Duration
	items       []Item
	incomplete  bool
	err         error

	completes int
	resets    int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) IsAvailable() bool { return !p.unavailable }

func (p *fakeProvider) Complete(_ *Context, done func(Result)) {
	p.mu.Lock()
	p.completes++
	res := Result{Items: p.items, Incomplete: p.incomplete, Err: p.err}
	delay := p.delay
	clock := p.clock
	p.mu.Unlock()

	if delay > 0 && clock != nil {
		clock.AfterFunc(delay, func() { done(res) })
		return
	}
	done(res)
}

func (p *fakeProvider) Reset() {
	p.mu.Lock()
	p.resets++
	p.mu.Unlock()
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completes
}

func (p *fakeProvider) resetCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// fakeResolvingProvider adds a Resolve step.
type fakeResolvingProvider struct {
	fakeProvider
	resolveFn    func(Item, func(Item))
	resolveCalls int
}

func (p *fakeResolvingProvider) Resolve(item Item, done func(Item)) {
	p.mu.Lock()
	p.resolveCalls++
	fn := p.resolveFn
	p.mu.Unlock()

	if fn != nil {
		fn(item, done)
		return
	}
	done(item)
}

func (p *fakeResolvingProvider) resolves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolveCalls
}

// fakeView records publishes and answers selection queries.
type fakeView struct {
	mu         sync.Mutex
	visible    bool
	candidates []*Candidate
	selected   int
	opens      [][]string
	ctxs       []*Context
	closes     int
}

func newFakeView() *fakeView {
	return &fakeView{selected: -1}
}

func (v *fakeView) Open(ctx *Context, candidates []*Candidate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = true
	v.candidates = candidates
	v.selected = -1
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Item().Label
	}
	v.opens = append(v.opens, labels)
	v.ctxs = append(v.ctxs, ctx)
}

func (v *fakeView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.visible {
		v.closes++
	}
	v.visible = false
	v.candidates = nil
	v.selected = -1
}

func (v *fakeView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *fakeView) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible && len(v.candidates) > 0
}

func (v *fakeView) Selected() *Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected < 0 || v.selected >= len(v.candidates) {
		return nil
	}
	return v.candidates[v.selected]
}

func (v *fakeView) First() *Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.candidates) == 0 {
		return nil
	}
	return v.candidates[0]
}

func (v *fakeView) SelectNext() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected++
	if v.selected >= len(v.candidates) {
		v.selected = -1
	}
}

func (v *fakeView) SelectPrev() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected--
	if v.selected < -1 {
		v.selected = len(v.candidates) - 1
	}
}

func (v *fakeView) openCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.opens)
}

func (v *fakeView) lastOpen() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.opens) == 0 {
		return nil
	}
	return v.opens[len(v.opens)-1]
}

func (v *fakeView) lastCtx() *Context {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.ctxs) == 0 {
		return nil
	}
	return v.ctxs[len(v.ctxs)-1]
}

// fakeExpander records snippet expansions without touching the host.
type fakeExpander struct {
	mu     sync.Mutex
	bodies []string
	modes  []host.InsertTextMode
}

func (x *fakeExpander) Expand(body string, mode host.InsertTextMode) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.bodies = append(x.bodies, body)
	x.modes = append(x.modes, mode)
	return nil
}

func (x *fakeExpander) expanded() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.bodies...)
}

func TestEngineSlowSourceDoesNotBlockFastOne(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	fast := &fakeProvider{name: "alpha", clock: clock, delay: 10 * time.Millisecond,
		items: []Item{{Label: "foo"}, {Label: "foobar"}}}
	slow := &fakeProvider{name: "beta", clock: clock, delay: 600 * time.Millisecond,
		items: []Item{{Label: "foobaz"}}}

	if _, err := e.RegisterSource(fast); err != nil {
		t.Fatal(err)
	}
	if _, err := e.RegisterSource(slow); err != nil {
		t.Fatal(err)
	}
	e.SetPriorityOrder(map[string]int{"alpha": 100, "beta": 50})

	start := clock.Now()
	h.Insert("f")
	e.OnChange()
	e.Sync()

	clock.Advance(10 * time.Millisecond)
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if view.openCount() != 1 {
		t.Fatalf("published %d times, want 1", view.openCount())
	}
	got := view.lastOpen()
	if len(got) != 2 || got[0] != "foo" || got[1] != "foobar" {
		t.Errorf("published %v, want [foo foobar]", got)
	}
	if elapsed := clock.Now().Sub(start); elapsed < 10*time.Millisecond || elapsed > 130*time.Millisecond {
		t.Errorf("published after %v, want within 10ms..130ms", elapsed)
	}

	// The slow source surfaces on the next pass once it lands.
	clock.Advance(570 * time.Millisecond)
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	got = view.lastOpen()
	if len(got) != 3 || got[2] != "foobaz" {
		t.Errorf("second publish %v, want slow source appended", got)
	}
}

func TestEngineWaitsAtMostOnceWhenNothingPublishable(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	slow := &fakeProvider{name: "beta", clock: clock, delay: 600 * time.Millisecond,
		items: []Item{{Label: "foobaz"}}}
	if _, err := e.RegisterSource(slow); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()

	// First pass at the debounce mark reschedules once for the slow
	// source; at the timeout mark nothing is publishable yet.
	clock.Advance(20 * time.Millisecond)
	e.Sync()
	clock.Advance(480 * time.Millisecond)
	e.Sync()
	if view.openCount() != 0 {
		t.Fatalf("published before the source landed")
	}

	clock.Advance(100 * time.Millisecond)
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if view.openCount() != 1 {
		t.Fatalf("published %d times, want 1", view.openCount())
	}
	if got := view.lastOpen(); len(got) != 1 || got[0] != "foobaz" {
		t.Errorf("published %v, want [foobaz]", got)
	}
}

func TestEngineDoesNotWaitOnIncompleteRefetch(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", incomplete: true,
		items: []Item{{Label: "foo"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()
	if view.openCount() != 1 {
		t.Fatalf("first publish count = %d, want 1", view.openCount())
	}

	// The re-query is slow; its previous answer was flagged incomplete,
	// so the filter pass must skip it instead of rescheduling for it.
	p.mu.Lock()
	p.delay = 600 * time.Millisecond
	p.mu.Unlock()

	h.Insert("o")
	e.OnChange()
	e.Sync()
	clock.Advance(120 * time.Millisecond)
	e.Sync()

	if view.Visible() {
		t.Error("menu stayed open waiting on an incomplete source")
	}
	if e.filter.Pending() {
		t.Error("filter pass rescheduled for an incomplete source")
	}

	// The answer still surfaces through its own completion.
	clock.Advance(500 * time.Millisecond)
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()
	if view.openCount() != 2 {
		t.Errorf("publish count = %d, want 2 after the slow answer lands", view.openCount())
	}
}

func TestEngineRequeriesWhenContextMovesDuringFetch(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "alpha", clock: clock, delay: 10 * time.Millisecond,
		items: []Item{{Label: "foo"}, {Label: "foobar"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()

	// The cursor moves while the fetch is in flight, without a change
	// event reaching the engine.
	h.Insert("o")

	clock.Advance(10 * time.Millisecond)
	e.Sync()

	if p.calls() != 2 {
		t.Fatalf("provider completes = %d, want a chained re-query", p.calls())
	}

	clock.Advance(10 * time.Millisecond)
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if got := view.lastOpen(); len(got) != 2 {
		t.Errorf("published %v, want both candidates for the fresh prefix", got)
	}
}

func TestEnginePublishCarriesLiveContext(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foo"}, {Label: "foobar"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()

	// The cursor moves between the fetch landing and the filter pass.
	h.Insert("o")
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	ctx := view.lastCtx()
	if ctx == nil {
		t.Fatal("no publish")
	}
	if ctx.CursorBeforeLine != "fo" {
		t.Errorf("published context line = %q, want the re-captured %q", ctx.CursorBeforeLine, "fo")
	}
	if fetched := view.First().Context().CursorBeforeLine; fetched != "f" {
		t.Errorf("candidate fetch context line = %q, want %q", fetched, "f")
	}
}

func TestEngineGuardSuppressesChangeBurst(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "alpha", items: []Item{{Label: "foo"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	var release func()
	_ = e.call(func() { release, _ = e.guard.Acquire() })

	for i := 0; i < 5; i++ {
		h.Insert("a")
		e.OnChange()
	}
	e.Sync()

	if p.calls() != 0 {
		t.Fatalf("guarded burst produced %d provider calls, want 0", p.calls())
	}

	_ = e.call(func() { release() })

	h.Insert("b")
	e.OnChange()
	e.Sync()

	if p.calls() != 1 {
		t.Errorf("provider calls after release = %d, want 1", p.calls())
	}
}

func TestEngineKeywordLengthGate(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock), WithKeywordLength(3))
	defer e.Close()

	p := &fakeProvider{name: "alpha", items: []Item{{Label: "abcdef"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("ab")
	e.OnChange()
	e.Sync()
	if p.calls() != 0 {
		t.Fatalf("short prefix triggered %d provider calls", p.calls())
	}

	h.Insert("c")
	e.OnChange()
	e.Sync()
	if p.calls() != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls())
	}
}

func TestEngineManualInvokeBypassesGate(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock), WithKeywordLength(5))
	defer e.Close()

	p := &fakeProvider{name: "alpha", items: []Item{{Label: "abcdef"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("a")
	e.Invoke()
	e.Sync()

	if p.calls() != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls())
	}
}

func TestEngineErroredSourceExcludedFromPublish(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	bad := &fakeProvider{name: "bad", err: errFetch}
	good := &fakeProvider{name: "good", items: []Item{{Label: "foo"}}}
	badID, err := e.RegisterSource(bad)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.RegisterSource(good); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if got := view.lastOpen(); len(got) != 1 || got[0] != "foo" {
		t.Errorf("published %v, want [foo]", got)
	}
	if st := e.Source(badID).Status(); st != StatusErrored {
		t.Errorf("failed source status = %v, want errored", st)
	}
}

func TestEngineConfirmSnippet(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "pri")
	h.SetCursor(host.Position{Row: 0, Col: 3})
	view := newFakeView()
	expander := &fakeExpander{}
	e := New(h, view, WithClock(clock), WithExpander(expander))
	defer e.Close()

	p := &fakeProvider{name: "snippets", items: []Item{{
		Label:  "printf",
		Format: FormatSnippet,
		Edit: &host.TextEdit{
			Range: host.Range{
				Start: host.Position{Row: 0, Col: 0},
				End:   host.Position{Row: 0, Col: 3},
			},
			NewText: "printf($1)",
		},
	}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if !view.Ready() {
		t.Fatal("menu not open")
	}
	cand := view.First()

	confirmed := false
	e.Confirm(func() { confirmed = true })
	e.Sync()

	if !confirmed {
		t.Fatal("confirm callback never ran")
	}
	if !cand.Confirmed() {
		t.Error("candidate not marked confirmed")
	}
	if got := expander.expanded(); len(got) != 1 || got[0] != "printf($1)" {
		t.Errorf("expander received %v, want the snippet body verbatim", got)
	}
	// The three typed characters are gone; the expander owns insertion.
	if h.Text() != "" {
		t.Errorf("buffer = %q, want empty before expansion output", h.Text())
	}
	if e.Guarded() {
		t.Error("guard leaked after confirmation")
	}
	if p.resetCalls() != 1 {
		t.Errorf("provider resets = %d, want 1", p.resetCalls())
	}
}

func TestEngineConfirmPlainTextReplacesWord(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "x := fo")
	h.SetCursor(host.Position{Row: 0, Col: 7})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foobar"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	e.Confirm(nil)
	e.Sync()

	if h.Text() != "x := foobar" {
		t.Errorf("buffer = %q, want %q", h.Text(), "x := foobar")
	}
	if h.Cursor() != (host.Position{Row: 0, Col: 11}) {
		t.Errorf("cursor = %v", h.Cursor())
	}
	if h.UndoBreaks() < 2 {
		t.Errorf("undo breaks = %d, want the insertion bracketed", h.UndoBreaks())
	}
}

func TestEngineConfirmSecondaryEdits(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "imp\n\nold")
	h.SetCursor(host.Position{Row: 0, Col: 3})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	cursorRowEdit := host.TextEdit{
		Range:   host.Range{Start: host.Position{Row: 0, Col: 0}, End: host.Position{Row: 0, Col: 3}},
		NewText: "clobber",
	}
	otherRowEdit := host.TextEdit{
		Range:   host.Range{Start: host.Position{Row: 2, Col: 0}, End: host.Position{Row: 2, Col: 3}},
		NewText: "new",
	}
	p := &fakeProvider{name: "lsp", items: []Item{{
		Label:           "import",
		AdditionalEdits: []host.TextEdit{cursorRowEdit, otherRowEdit},
	}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	e.Confirm(nil)
	e.Sync()

	applied := h.AppliedEdits()
	if len(applied) != 1 {
		t.Fatalf("applied %d secondary edits, want 1", len(applied))
	}
	if applied[0].NewText != "new" {
		t.Errorf("applied %q, want the off-row edit only", applied[0].NewText)
	}
	if h.Line(2) != "new" {
		t.Errorf("row 2 = %q, want %q", h.Line(2), "new")
	}
	if h.Line(0) != "import" {
		t.Errorf("row 0 = %q, want %q", h.Line(0), "import")
	}
}

func TestEngineConfirmResolvesMissingEdits(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "imp\n\nold")
	h.SetCursor(host.Position{Row: 0, Col: 3})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeResolvingProvider{
		fakeProvider: fakeProvider{name: "lsp", items: []Item{{Label: "import"}}},
		resolveFn: func(item Item, done func(Item)) {
			item.AdditionalEdits = []host.TextEdit{{
				Range:   host.Range{Start: host.Position{Row: 2, Col: 0}, End: host.Position{Row: 2, Col: 3}},
				NewText: "resolved",
			}}
			done(item)
		},
	}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	e.Confirm(nil)
	e.Sync()

	if p.resolves() != 1 {
		t.Fatalf("resolves = %d, want 1", p.resolves())
	}
	if h.Line(2) != "resolved" {
		t.Errorf("row 2 = %q, want %q", h.Line(2), "resolved")
	}
}

func TestEngineConfirmReleasesGuardWhenClosedMidResolve(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "imp")
	h.SetCursor(host.Position{Row: 0, Col: 3})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeResolvingProvider{
		fakeProvider: fakeProvider{name: "lsp", items: []Item{{Label: "import"}}},
		resolveFn: func(item Item, done func(Item)) {
			clock.AfterFunc(10*time.Millisecond, func() { done(item) })
		},
	}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	e.Confirm(nil)
	e.Sync()
	if !e.Guarded() {
		t.Fatal("transaction not holding the guard during resolution")
	}

	// The engine shuts down while the resolution is in flight; when it
	// lands, the dropped continuation must still free the guard.
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	clock.Advance(10 * time.Millisecond)

	if e.guard.Held() {
		t.Error("guard leaked after close interrupted the transaction")
	}
}

func TestEngineConfirmAlreadyConfirmedIsNoOp(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "fo")
	h.SetCursor(host.Position{Row: 0, Col: 2})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foo"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	cand := view.First()
	e.Confirm(nil)
	e.Sync()

	ran := 0
	_ = e.call(func() { e.confirm(cand, BehaviorInsert, func() { ran++ }) })
	e.Sync()

	if ran != 0 {
		t.Error("callback ran for an already-confirmed candidate")
	}
	if e.Guarded() {
		t.Error("guard leaked on refused confirmation")
	}
}

func TestEngineCommitCharacterConfirms(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "fo")
	h.SetCursor(host.Position{Row: 0, Col: 2})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foo", CommitCharacters: []string{"."}}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	cand := view.First()
	if e.OnKeypress(".") {
		t.Error("commit character was consumed; the host should still insert it")
	}
	e.Sync()

	if !cand.Confirmed() {
		t.Error("commit character did not confirm")
	}
	if h.Text() != "foo" {
		t.Errorf("buffer = %q, want %q", h.Text(), "foo")
	}
}

func TestEngineKeymapActions(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "fo")
	h.SetCursor(host.Position{Row: 0, Col: 2})
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foo"}, {Label: "fob"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}
	if err := e.ApplyKeymap(map[string]string{
		"<C-n>": ActionSelectNext,
		"<C-e>": ActionAbort,
	}); err != nil {
		t.Fatal(err)
	}

	e.OnChange()
	e.Sync()
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if !e.OnKeypress("<C-n>") {
		t.Fatal("bound key not consumed")
	}
	if view.Selected() == nil {
		t.Error("selection did not advance")
	}

	if !e.OnKeypress("<C-e>") {
		t.Fatal("abort key not consumed")
	}
	if view.Visible() {
		t.Error("abort left the menu open")
	}
	if p.resetCalls() == 0 {
		t.Error("abort did not reset sources")
	}
}

func TestEngineAutoindentPreStep(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "  foo")
	h.ReindentLine = func(line string) string {
		if rest, ok := strings.CutPrefix(line, "  "); ok {
			return "\t" + rest
		}
		return line
	}
	h.SetCursor(host.Position{Row: 0, Col: 5})
	view := newFakeView()
	e := New(h, view, WithClock(clock), WithAutoTrigger(false))
	defer e.Close()

	e.OnChange()
	e.Sync()

	if h.Line(0) != "\tfoo" {
		t.Errorf("line = %q, want reindented", h.Line(0))
	}
	if e.Guarded() {
		t.Error("guard held after autoindent")
	}
}

func TestEngineNoPublishOutsideInsertMode(t *testing.T) {
	clock := timer.NewFakeClock()
	h := host.NewMemHost("main.go", "")
	view := newFakeView()
	e := New(h, view, WithClock(clock))
	defer e.Close()

	p := &fakeProvider{name: "words", items: []Item{{Label: "foo"}}}
	if _, err := e.RegisterSource(p); err != nil {
		t.Fatal(err)
	}

	h.Insert("f")
	e.OnChange()
	e.Sync()
	h.SetInsertMode(false)
	clock.Advance(20 * time.Millisecond)
	e.Sync()

	if view.openCount() != 0 {
		t.Error("published outside insert mode")
	}
}

func TestEngineCloseRejectsWork(t *testing.T) {
	h := host.NewMemHost("main.go", "")
	e := New(h, newFakeView(), WithAutoTrigger(false))

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(); err != ErrEngineClosed {
		t.Errorf("second Close = %v, want ErrEngineClosed", err)
	}
	if _, err := e.RegisterSource(&fakeProvider{name: "x"}); err != ErrEngineClosed {
		t.Errorf("RegisterSource after close = %v, want ErrEngineClosed", err)
	}
}
