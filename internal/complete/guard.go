package complete

// guardState is the reentrancy guard's position.
type guardState int

const (
	guardIdle guardState = iota
	guardHeld
)

// guard serializes confirmation transactions and suppresses the change
// events the transaction's own edits generate. It is loop-confined;
// no locking.
type guard struct {
	state guardState
}

// Held reports whether a transaction is in progress.
func (g *guard) Held() bool {
	return g.state == guardHeld
}

// Acquire takes the guard. It returns an idempotent release and true,
// or a nil release and false when the guard is already held. Release
// may be called from any continuation; extra calls are no-ops.
func (g *guard) Acquire() (release func(), ok bool) {
	if g.state == guardHeld {
		return nil, false
	}
	g.state = guardHeld
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.state = guardIdle
	}, true
}
