package complete

import (
	"fmt"
	"time"
)

// Status is a source's position in its fetch lifecycle. Transitions
// only advance Waiting -> Fetching -> {Completed, Errored}; reset (or a
// fresh fetch) returns to the start, never skipping states.
type Status int

const (
	// StatusWaiting means no fetch has run since registration or the
	// last reset.
	StatusWaiting Status = iota

	// StatusFetching means an asynchronous fetch is in flight.
	StatusFetching

	// StatusCompleted means the last fetch delivered candidates.
	StatusCompleted

	// StatusErrored means the last fetch failed; the source is
	// excluded from publishing until re-queried.
	StatusErrored
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusFetching:
		return "fetching"
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Source is the engine-side state for one registered provider: status,
// fetch timing, the incomplete flag, and the candidates from the most
// recent fetch. All mutation happens on the engine loop.
type Source struct {
	id       string
	provider Provider

	status     Status
	startedAt  time.Time
	fetchGen   uint64
	incomplete bool
	candidates []*Candidate
	ctx        *Context
}

// ID returns the registry-assigned id.
func (s *Source) ID() string {
	return s.id
}

// Name returns the provider name.
func (s *Source) Name() string {
	return s.provider.Name()
}

// Provider returns the wrapped provider.
func (s *Source) Provider() Provider {
	return s.provider
}

// Status returns the current lifecycle status.
func (s *Source) Status() Status {
	return s.status
}

// Incomplete reports whether the provider flagged its last answer as
// improvable by a re-query.
func (s *Source) Incomplete() bool {
	return s.incomplete
}

// Candidates returns the candidates from the most recent completed
// fetch.
func (s *Source) Candidates() []*Candidate {
	return s.candidates
}

// Context returns the context the current candidates answer.
func (s *Source) Context() *Context {
	return s.ctx
}

// FetchingTime returns how long the in-flight fetch has been running.
// For sources not fetching it returns a duration beyond any timeout, so
// timeout comparisons treat them as long settled.
func (s *Source) FetchingTime(now time.Time) time.Duration {
	if s.status != StatusFetching {
		return time.Hour
	}
	return now.Sub(s.startedAt)
}

// startFetch moves the source into Fetching for a new cycle. The
// incomplete flag is provider state, not cycle state: it survives the
// re-query so the publish loop keeps treating the source as improvable
// until the response says otherwise.
func (s *Source) startFetch(now time.Time, gen uint64) {
	s.status = StatusFetching
	s.startedAt = now
	s.fetchGen = gen
}

// completeFetch records a successful fetch. Ignored unless fetching;
// a stale continuation arriving after reset must not resurrect state.
func (s *Source) completeFetch(ctx *Context, candidates []*Candidate, incomplete bool) error {
	if s.status != StatusFetching {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, s.status)
	}
	s.status = StatusCompleted
	s.ctx = ctx
	s.candidates = candidates
	s.incomplete = incomplete
	return nil
}

// fail records a failed fetch. Ignored unless fetching.
func (s *Source) fail() error {
	if s.status != StatusFetching {
		return fmt.Errorf("%w: %s -> errored", ErrInvalidTransition, s.status)
	}
	s.status = StatusErrored
	s.candidates = nil
	s.incomplete = false
	return nil
}

// reset returns the source to Waiting and clears provider-side caches.
func (s *Source) reset() {
	s.status = StatusWaiting
	s.candidates = nil
	s.ctx = nil
	s.incomplete = false
	s.fetchGen = 0
	s.provider.Reset()
}
