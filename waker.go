package kestrel

import "sync/atomic"

// Waker is an opaque, cloneable handle whose signalling queues its associated
// task for a re-poll. Each signal appends one pending entry, so several
// signals before the next drain can re-poll the task more than once (see
// WakeByRef). Signalling a Waker after the
// runtime it was created under has been uninstalled panics: a stale wake-up
// is a programming error, not a recoverable condition.
//
// Go is garbage collected, so the refcount frees nothing when it reaches
// zero; it exists to keep the clone/drop protocol observable, so misuse
// (e.g. a future that forgets to Drop a cloned waker) stays detectable in
// tests.
type Waker struct {
	core *wakerCore
}

type wakerCore struct {
	id    TaskID
	sched *Scheduler
	refs  atomic.Int64
}

// newWaker constructs a Waker bound to id on sched, with a refcount of one.
func newWaker(sched *Scheduler, id TaskID) *Waker {
	c := &wakerCore{id: id, sched: sched}
	c.refs.Store(1)
	return &Waker{core: c}
}

// Clone returns a new handle to the same underlying wake target, incrementing
// its refcount. Both the original and the clone must eventually be dropped
// (directly, or via Wake, which drops implicitly).
func (w *Waker) Clone() *Waker {
	w.core.refs.Add(1)
	return &Waker{core: w.core}
}

// WakeByRef signals the wake target without consuming this handle. It may be
// called any number of times; every call after the first appends a harmless
// duplicate to the scheduler's pending queue.
func (w *Waker) WakeByRef() {
	requireInstalledFor(w.core.sched).schedule(w.core.id)
}

// Wake signals the wake target and then drops this handle. Equivalent to
// WakeByRef followed by Drop.
func (w *Waker) Wake() {
	w.WakeByRef()
	w.Drop()
}

// Drop releases this handle's reference. It does not itself signal.
func (w *Waker) Drop() {
	w.core.refs.Add(-1)
}
