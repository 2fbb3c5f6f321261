// Package host defines the document host contract the completion engine
// drives: cursor and line access, insert-mode state, counted delete and
// insert keystrokes, undo breakpoints, secondary text edits, and the
// autoindent pre-step.
//
// The engine expresses the primary confirmation edit as counted
// backward/forward deletions plus inserts rather than absolute buffer
// surgery, preserving the host's own undo granularity. MemHost is an
// in-memory implementation used by the tests and the demo.
package host
