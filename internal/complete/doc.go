// Package complete implements the autocompletion orchestration engine:
// it captures versioned snapshots of the edit state, drives registered
// providers through their asynchronous fetch cycles, decides under
// throttle/debounce/timeout constraints when accumulated results are
// good enough to publish, and commits a chosen candidate back into the
// document as a strictly ordered sequence of edits.
//
// All engine state is confined to a single serial task loop. Provider
// fetches, timers, and post-insertion commands run elsewhere but resume
// by posting continuations onto that loop, so no two pieces of engine
// work ever interleave. Staleness of in-flight fetches is detected by
// comparing context generation counters, never by cancellation.
//
// The engine consumes a document Host, a presentation View, and a
// snippet Expander; all three are collaborator contracts with no
// algorithmic weight here.
package complete
