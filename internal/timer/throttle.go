package timer

import (
	"sync"
	"time"
)

// Throttled coalesces bursts of run requests into spaced executions of a
// single function. Two windows interact:
//
//   - Interval is the throttle: successive executions are never closer
//     together than this.
//   - Debounce is the trailing settle window: each new Request restarts
//     it, so a burst collapses into one execution after the burst ends.
//
// RequestAfter bypasses both windows and schedules an execution at an
// explicit delay, cancelling whatever was pending.
type Throttled struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	debounce time.Duration
	fn       func()

	lastFire time.Time
	pending  Timer
	stopped  bool
}

// NewThrottled creates a coalescing scheduler for fn. fn runs on the
// clock's timer goroutine; callers needing serialization must post from
// fn themselves.
func NewThrottled(clock Clock, interval, debounce time.Duration, fn func()) *Throttled {
	return &Throttled{
		clock:    clock,
		interval: interval,
		debounce: debounce,
		fn:       fn,
	}
}

// Request asks for an execution. A pending request is cancelled and
// rescheduled. With immediate set, the debounce window is skipped and
// only the throttle spacing applies.
func (t *Throttled) Request(immediate bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	delay := t.debounce
	if immediate {
		delay = 0
	}
	if !t.lastFire.IsZero() {
		if rem := t.interval - t.clock.Now().Sub(t.lastFire); rem > delay {
			delay = rem
		}
	}
	t.scheduleLocked(delay)
}

// RequestAfter schedules an execution after exactly d, replacing any
// pending request. Used for the engine's "wait once for a slow source"
// reschedule.
func (t *Throttled) RequestAfter(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if d < 0 {
		d = 0
	}
	t.scheduleLocked(d)
}

// Stop cancels any pending execution. Further requests are ignored.
func (t *Throttled) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// Pending reports whether an execution is scheduled.
func (t *Throttled) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *Throttled) scheduleLocked(delay time.Duration) {
	if t.pending != nil {
		t.pending.Stop()
	}
	t.pending = t.clock.AfterFunc(delay, t.fire)
}

func (t *Throttled) fire() {
	t.mu.Lock()
	t.pending = nil
	t.lastFire = t.clock.Now()
	fn := t.fn
	stopped := t.stopped
	t.mu.Unlock()

	if !stopped {
		fn()
	}
}
