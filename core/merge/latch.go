package merge

import "sync/atomic"

// Latch records that the remote request budget is exhausted.
// It only ever moves from open to tripped and is shared by every worker of a pass.
type Latch struct {
	tripped atomic.Bool
}

// NewLatch returns an open latch.
func NewLatch() *Latch {
	return &Latch{}
}

// Trip closes the latch. It reports true only for the call that performed the transition.
func (l *Latch) Trip() bool {
	return l.tripped.CompareAndSwap(false, true)
}

// Tripped reports whether the latch has been closed.
func (l *Latch) Tripped() bool {
	return l.tripped.Load()
}
