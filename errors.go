package kestrel

import "errors"

// Usage errors: conditions detected by panicking rather than by returning
// an error, because they indicate a programming mistake rather than a
// runtime condition a caller could sensibly recover from.
var (
	// ErrRuntimeAlreadyInstalled is the panic value when BlockOn is called
	// while a runtime is already installed. The runtime slot is process-wide,
	// so this holds for a runtime installed on any OS thread.
	ErrRuntimeAlreadyInstalled = errors.New("kestrel: a runtime is already installed on this thread")

	// ErrNoRuntimeInstalled is the panic value for Spawn, Register, or
	// Waker signalling performed with no runtime installed.
	ErrNoRuntimeInstalled = errors.New("kestrel: no runtime installed on this thread")
)

// Errors returned by the tcp facade (see the tcp subpackage). Declared here
// so both this package and tcp can reference the same sentinels without a
// dependency cycle.
var (
	// ErrListenerClosed is returned by an Accept future polled after its
	// Listener was closed, whether it was pending at Close or created later.
	ErrListenerClosed = errors.New("kestrel: listener closed")

	// ErrStreamClosed is returned by a Read or Write future polled after its
	// Stream was closed, whether it was pending at Close or created later.
	ErrStreamClosed = errors.New("kestrel: stream closed")
)
