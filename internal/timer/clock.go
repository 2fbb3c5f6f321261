package timer

import "time"

// Clock abstracts wall time so schedulers can be driven deterministically
// in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run after d elapses. The returned Timer
	// can cancel the pending call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending scheduled call.
type Timer interface {
	// Stop cancels the pending call. It reports whether the call was
	// still pending.
	Stop() bool
}

// realClock implements Clock using the time package.
type realClock struct{}

// NewClock returns a Clock backed by real wall time.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}
