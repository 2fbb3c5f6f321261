package complete

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/typeahead/internal/host"
	"github.com/dshills/typeahead/internal/keymap"
	"github.com/dshills/typeahead/internal/logger"
	"github.com/dshills/typeahead/internal/timer"
)

// Timing constants for the filter/publish scheduler.
const (
	// SourceTimeout bounds how long a slow source may hold up
	// publishing.
	SourceTimeout = 500 * time.Millisecond

	// ThrottleInterval is the minimum spacing between filter runs.
	ThrottleInterval = 120 * time.Millisecond

	// DebounceInterval is the settle window after a fetch chain
	// completes before filtering runs.
	DebounceInterval = 20 * time.Millisecond
)

// Built-in keymap action names.
const (
	ActionConfirm        = "confirm"
	ActionConfirmReplace = "confirm_replace"
	ActionSelectNext     = "select_next"
	ActionSelectPrev     = "select_prev"
	ActionAbort          = "abort"
	ActionComplete       = "complete"
)

// Engine orchestrates completion: it snapshots edit state, fans queries
// out to registered sources, filters and publishes their candidates,
// and commits a chosen candidate back into the document.
//
// All engine state lives on a single task loop. Public methods post
// onto the loop; asynchronous collaborators (provider fetches, timers)
// post their continuations the same way, so no internal state needs
// locking.
type Engine struct {
	h        host.Host
	view     View
	expander Expander
	clock    timer.Clock
	log      *log.Logger

	tasks chan func()
	quit  chan struct{}

	registry *Registry
	guard    guard
	filter   *timer.Throttled
	km       *keymap.Map

	current    *Context
	generation uint64

	autoTrigger      bool
	keywordLength    int
	defaultBehavior  ConfirmBehavior
	commitCharacters []string
	onConfirmDone    func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source; tests install a fake clock.
func WithClock(c timer.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger installs a logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithExpander installs the snippet-expansion collaborator. Without
// one, snippet items insert their text literally.
func WithExpander(x Expander) Option {
	return func(e *Engine) { e.expander = x }
}

// WithAutoTrigger enables or disables querying on change events.
// Manual invocation always works.
func WithAutoTrigger(on bool) Option {
	return func(e *Engine) { e.autoTrigger = on }
}

// WithKeywordLength sets the minimum keyword length before automatic
// completion triggers.
func WithKeywordLength(n int) Option {
	return func(e *Engine) { e.keywordLength = n }
}

// WithDefaultBehavior sets the confirm behavior used when none is
// given.
func WithDefaultBehavior(b ConfirmBehavior) Option {
	return func(e *Engine) { e.defaultBehavior = b }
}

// WithCommitCharacters sets engine-wide commit characters, merged with
// each candidate's own.
func WithCommitCharacters(chars []string) Option {
	return func(e *Engine) { e.commitCharacters = append([]string(nil), chars...) }
}

// WithOnConfirmDone installs an observer invoked after every completed
// confirmation transaction.
func WithOnConfirmDone(fn func()) Option {
	return func(e *Engine) { e.onConfirmDone = fn }
}

// New creates an engine bound to a host and a view and starts its task
// loop.
func New(h host.Host, view View, opts ...Option) *Engine {
	e := &Engine{
		h:               h,
		view:            view,
		clock:           timer.NewClock(),
		log:             logger.Discard("complete"),
		tasks:           make(chan func(), 64),
		quit:            make(chan struct{}),
		registry:        newRegistry(),
		autoTrigger:     true,
		keywordLength:   1,
		defaultBehavior: BehaviorInsert,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.filter = timer.NewThrottled(e.clock, ThrottleInterval, DebounceInterval, func() {
		e.post(e.filterNow)
	})
	go e.run()
	return e
}

// run is the task loop. Everything that touches engine state executes
// here, one task at a time, in post order.
func (e *Engine) run() {
	for {
		select {
		case fn := <-e.tasks:
			fn()
		case <-e.quit:
			return
		}
	}
}

// post schedules fn on the task loop. Posting to a closed engine
// returns ErrEngineClosed; asynchronous continuations ignore it.
func (e *Engine) post(fn func()) error {
	select {
	case <-e.quit:
		return ErrEngineClosed
	default:
	}
	select {
	case e.tasks <- fn:
		return nil
	case <-e.quit:
		return ErrEngineClosed
	}
}

// call posts fn and waits for it to finish.
func (e *Engine) call(fn func()) error {
	done := make(chan struct{})
	if err := e.post(func() {
		fn()
		close(done)
	}); err != nil {
		return err
	}
	<-done
	return nil
}

// Sync waits until every previously posted task has run. Tests use it
// to observe loop-confined effects deterministically.
func (e *Engine) Sync() {
	_ = e.call(func() {})
}

// Close stops the task loop and cancels pending timers. Further calls
// are no-ops.
func (e *Engine) Close() error {
	select {
	case <-e.quit:
		return ErrEngineClosed
	default:
	}
	e.filter.Stop()
	close(e.quit)
	return nil
}

// RegisterSource registers a provider and returns its source id.
func (e *Engine) RegisterSource(p Provider) (string, error) {
	var id string
	err := e.call(func() { id = e.registry.Register(p) })
	return id, err
}

// UnregisterSource removes a source. Unknown ids are no-ops.
func (e *Engine) UnregisterSource(id string) {
	_ = e.call(func() { e.registry.Unregister(id) })
}

// SetPriorityOrder replaces the name-to-priority table.
func (e *Engine) SetPriorityOrder(priorities map[string]int) {
	_ = e.call(func() { e.registry.SetPriority(priorities) })
}

// SetKeywordLength changes the automatic trigger threshold.
func (e *Engine) SetKeywordLength(n int) {
	_ = e.call(func() { e.keywordLength = n })
}

// SetDefaultBehavior changes the confirm behavior used by Confirm.
func (e *Engine) SetDefaultBehavior(b ConfirmBehavior) {
	_ = e.call(func() { e.defaultBehavior = b })
}

// SetCommitCharacters replaces the engine-wide commit characters.
func (e *Engine) SetCommitCharacters(chars []string) {
	_ = e.call(func() { e.commitCharacters = append([]string(nil), chars...) })
}

// SetAutoTrigger enables or disables change-driven querying.
func (e *Engine) SetAutoTrigger(on bool) {
	_ = e.call(func() { e.autoTrigger = on })
}

// Current returns the engine's current context snapshot.
func (e *Engine) Current() *Context {
	var ctx *Context
	_ = e.call(func() { ctx = e.current })
	return ctx
}

// Guarded reports whether a confirmation transaction is in flight.
func (e *Engine) Guarded() bool {
	var held bool
	_ = e.call(func() { held = e.guard.Held() })
	return held
}

// Source returns a snapshot view of the source with the given id, or
// nil.
func (e *Engine) Source(id string) *Source {
	var s *Source
	_ = e.call(func() { s = e.registry.Lookup(id) })
	return s
}

// ApplyKeymap installs bindings mapping key sequences to built-in
// action names. Unknown names return ErrUnknownAction and leave
// earlier bindings in place.
func (e *Engine) ApplyKeymap(bindings map[string]string) error {
	return e.call(func() {
		if e.km == nil {
			e.km = keymap.New()
		}
		for keys, name := range bindings {
			switch name {
			case ActionConfirm, ActionConfirmReplace, ActionSelectNext,
				ActionSelectPrev, ActionAbort, ActionComplete:
				if err := e.km.Bind(keys, keymap.Builtin(name)); err != nil {
					e.log.Warn("bad binding", "keys", keys, "err", err)
				}
			default:
				e.log.Warn("unknown action", "keys", keys, "action", name)
			}
		}
	})
}

// Bind installs a custom handler for a key sequence. The handler runs
// on the engine loop.
func (e *Engine) Bind(keys string, fn func()) error {
	var err error
	callErr := e.call(func() {
		if e.km == nil {
			e.km = keymap.New()
		}
		err = e.km.Bind(keys, keymap.Custom(fn))
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// OnChange is the host's edit-change entry point. It captures a fresh
// context, and unless the guard is held, decides whether sources must
// be re-queried.
func (e *Engine) OnChange() {
	_ = e.call(e.onChange)
}

// Invoke requests completion explicitly, bypassing the keyword-length
// gate and re-querying every eligible source.
func (e *Engine) Invoke() {
	_ = e.call(func() {
		if e.guard.Held() {
			return
		}
		ctx := e.advance(ReasonManual)
		e.broadcast(ctx)
		e.filter.Request(true)
	})
}

// OnKeypress dispatches one key sequence. Bound actions consume the
// key; a commit character confirms the selection but is still reported
// unconsumed so the host inserts it afterwards.
func (e *Engine) OnKeypress(keys string) bool {
	var handled bool
	_ = e.call(func() { handled = e.keypress(keys) })
	return handled
}

// SelectNext moves the menu selection down.
func (e *Engine) SelectNext() {
	_ = e.call(func() {
		if e.view.Ready() {
			e.view.SelectNext()
		}
	})
}

// SelectPrev moves the menu selection up.
func (e *Engine) SelectPrev() {
	_ = e.call(func() {
		if e.view.Ready() {
			e.view.SelectPrev()
		}
	})
}

// Abort closes the menu and resets every source.
func (e *Engine) Abort() {
	_ = e.call(func() {
		e.view.Close()
		e.resetSources()
	})
}

// Confirm commits the current selection (or, failing that, the first
// candidate) with the default behavior. done, when non-nil, runs after
// the transaction completes; it is never invoked when the
// preconditions fail.
func (e *Engine) Confirm(done func()) {
	_ = e.call(func() { e.confirmSelection(e.defaultBehavior, done) })
}

// ConfirmWith commits the current selection with an explicit behavior.
func (e *Engine) ConfirmWith(behavior ConfirmBehavior, done func()) {
	_ = e.call(func() { e.confirmSelection(behavior, done) })
}

// onChange runs on the loop for every host edit event.
func (e *Engine) onChange() {
	if e.guard.Held() {
		// Bookkeeping only: the transaction's own edits must not
		// retrigger querying, but the context stays fresh.
		e.advance(ReasonAuto)
		return
	}

	if row := e.h.Cursor().Row; e.h.NeedsReindent(row) {
		release, ok := e.guard.Acquire()
		if ok {
			e.h.Reindent(row)
			release()
		}
	}

	prev := e.current
	ctx := e.advance(ReasonAuto)
	if !Changed(prev, ctx) {
		return
	}

	if !e.autoTrigger {
		return
	}
	if len([]rune(ctx.WordPrefix())) < e.keywordLength {
		e.view.Close()
		e.resetSources()
		return
	}

	e.broadcast(ctx)
	e.filter.Request(false)
}

// advance installs a fresh context snapshot as current and returns it.
// The superseded context keeps no ancestry of its own, so the chain is
// always one hop.
func (e *Engine) advance(reason Reason) *Context {
	ctx := captureContext(e.h, reason)
	e.generation++
	ctx.Generation = e.generation
	if e.current != nil {
		e.current.prev = nil
	}
	ctx.prev = e.current
	e.current = ctx
	return ctx
}

// broadcast starts a fetch on every available source for ctx.
func (e *Engine) broadcast(ctx *Context) {
	for _, s := range e.registry.Eligible() {
		e.completeSource(s, ctx)
	}
}

// completeSource drives one source's fetch cycle for ctx.
func (e *Engine) completeSource(s *Source, ctx *Context) {
	gen := ctx.Generation
	s.startFetch(e.clock.Now(), gen)
	s.provider.Complete(ctx, func(res Result) {
		_ = e.post(func() { e.onFetchDone(s, ctx, gen, res) })
	})
}

// onFetchDone handles a source's fetch continuation on the loop. Stale
// continuations (a newer fetch has started on this source) drop
// silently.
func (e *Engine) onFetchDone(s *Source, ctx *Context, gen uint64, res Result) {
	if s.fetchGen != gen || s.status != StatusFetching {
		return
	}

	if res.Err != nil {
		_ = s.fail()
		e.log.Debug("source errored", "source", s.Name(), "err", res.Err)
		e.filter.Request(false)
		return
	}

	candidates := make([]*Candidate, 0, len(res.Items))
	for _, item := range res.Items {
		candidates = append(candidates, newCandidate(item, s.provider, ctx))
	}
	_ = s.completeFetch(ctx, candidates, res.Incomplete)

	// Chain: if the edit state moved while this fetch ran and no newer
	// cycle superseded it, the answer targets a stale prefix, so
	// re-query with a fresh snapshot instead of publishing.
	live := captureContext(e.h, ctx.Reason)
	if Changed(live, ctx) && e.current != nil && gen == e.current.Generation {
		next := e.advance(ctx.Reason)
		e.completeSource(s, next)
		return
	}

	e.filter.Request(false)
}

// filterNow is the throttled filter/publish pass. It runs on the loop.
func (e *Engine) filterNow() {
	if e.guard.Held() {
		return
	}
	if !e.h.InsertMode() {
		e.view.Close()
		return
	}

	live := captureContext(e.h, ReasonAuto)
	now := e.clock.Now()

	var collected []*Source
	for _, s := range e.registry.Eligible(StatusFetching, StatusCompleted) {
		if s.Status() == StatusFetching {
			remaining := SourceTimeout - s.FetchingTime(now)
			if !s.Incomplete() && remaining > 0 {
				if len(collected) == 0 {
					// Nothing publishable yet: wait once for this
					// source rather than dropping the attempt.
					e.filter.RequestAfter(remaining)
					return
				}
				// Something is already publishable: accept partial
				// results instead of waiting further down the order.
				break
			}
			continue
		}
		collected = append(collected, s)
	}

	candidates := filterCandidates(collected, live)
	if len(candidates) == 0 {
		e.view.Close()
		return
	}
	e.view.Open(live, candidates)
}

// keypress resolves one key sequence on the loop.
func (e *Engine) keypress(keys string) bool {
	if e.km != nil {
		if action, ok := e.km.Resolve(keys); ok {
			e.runAction(action)
			return true
		}
	}

	// Commit characters confirm but do not consume: the host inserts
	// the character after the transaction's edits.
	if e.view.Ready() {
		cand := e.view.Selected()
		if cand == nil {
			cand = e.view.First()
		}
		if cand != nil && e.isCommitCharacter(cand, keys) {
			e.advance(ReasonTriggerOnly)
			e.confirm(cand, e.defaultBehavior, nil)
		}
	}
	return false
}

// runAction executes a resolved keymap action on the loop.
func (e *Engine) runAction(action keymap.Action) {
	if action.Handler != nil {
		action.Handler()
		return
	}
	switch action.Name {
	case ActionConfirm:
		e.confirmSelection(e.defaultBehavior, nil)
	case ActionConfirmReplace:
		e.confirmSelection(BehaviorReplace, nil)
	case ActionSelectNext:
		if e.view.Ready() {
			e.view.SelectNext()
		}
	case ActionSelectPrev:
		if e.view.Ready() {
			e.view.SelectPrev()
		}
	case ActionAbort:
		e.view.Close()
		e.resetSources()
	case ActionComplete:
		if !e.guard.Held() {
			ctx := e.advance(ReasonManual)
			e.broadcast(ctx)
			e.filter.Request(true)
		}
	default:
		e.log.Warn("unbound action", "action", action.Name)
	}
}

// confirmSelection picks the candidate to commit and starts the
// transaction.
func (e *Engine) confirmSelection(behavior ConfirmBehavior, done func()) {
	if !e.view.Ready() {
		return
	}
	cand := e.view.Selected()
	if cand == nil {
		cand = e.view.First()
	}
	if cand == nil {
		return
	}
	e.confirm(cand, behavior, done)
}

// isCommitCharacter reports whether keys confirm cand, checking the
// candidate's own commit characters then the engine-wide set.
func (e *Engine) isCommitCharacter(cand *Candidate, keys string) bool {
	if cand.HasCommitCharacter(keys) {
		return true
	}
	for _, ch := range e.commitCharacters {
		if ch == keys {
			return true
		}
	}
	return false
}

// resetSources returns every source to Waiting and clears caches.
func (e *Engine) resetSources() {
	for _, s := range e.registry.All() {
		s.reset()
	}
}
