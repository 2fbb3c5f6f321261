// Package timer provides the timing primitives used by the completion
// engine: a Clock abstraction over wall time, and Throttled, a coalescing
// scheduler that combines a minimum-spacing throttle with a trailing
// debounce window.
//
// Throttled is the single primitive behind the engine's filter/publish
// loop: callers request a run, bursts collapse into one execution, and an
// explicit RequestAfter supports the "wait for a slow source" reschedule.
//
// FakeClock makes every timing decision deterministic under test.
package timer
