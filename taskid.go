package kestrel

// TaskID identifies a live suspended computation. It is wide enough to
// travel through a Waker's opaque slot and is never reused within a single
// BlockOn invocation.
type TaskID uint64

// taskIDGenerator hands out monotonically increasing TaskIDs. It is owned
// exclusively by a Scheduler; the zero value is ready to use and starts at 0.
type taskIDGenerator struct {
	counter TaskID
}

// next returns the current counter value and advances it.
func (g *taskIDGenerator) next() TaskID {
	id := g.counter
	g.counter++
	return id
}
