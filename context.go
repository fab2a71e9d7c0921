package kestrel

// Context is passed to Future.Poll. It carries the Waker the polled future
// must capture (directly, or a Clone of it) before returning not-ready.
type Context struct {
	waker *Waker
}

// Waker returns the waker associated with the current poll. The returned
// Waker is borrowed for the duration of the call; callers that need to hold
// onto it past the end of Poll must call Clone.
func (c *Context) Waker() *Waker {
	return c.waker
}
