package complete

import "errors"

// Standard errors returned by the engine.
var (
	// ErrEngineClosed indicates the engine's task loop has been shut
	// down.
	ErrEngineClosed = errors.New("completion engine closed")

	// ErrUnknownAction indicates a keymap binding names a built-in
	// action the engine does not define.
	ErrUnknownAction = errors.New("unknown built-in action")

	// ErrInvalidTransition indicates a source status change outside
	// Waiting -> Fetching -> {Completed, Errored} -> reset.
	ErrInvalidTransition = errors.New("invalid source status transition")
)
