//go:build linux

package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/kestrelrt/kestrel"
)

// Stream is a non-blocking, connected TCP socket, produced by
// Listener.Accept or Dial.
type Stream struct {
	fd     int
	remote net.Addr
	closed bool
}

// LocalAddr returns the stream's local address.
func (s *Stream) LocalAddr() net.Addr {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

// RemoteAddr returns the peer's address, as reported by accept(2) or, for a
// Stream from Dial, by getpeername(2).
func (s *Stream) RemoteAddr() net.Addr { return s.remote }

// Close deregisters the stream from the reactor, if registered, and closes
// the underlying socket. Any Read or Write future in flight resolves with
// ErrStreamClosed on its next poll.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	kestrel.Deregister(s.fd)
	return unix.Close(s.fd)
}

// ReadResult is the output of the future returned by Stream.Read. N is 0
// and Err is nil at orderly close: a ready result with a zero count means
// the peer shut its side down, and the caller decides whether to stop.
type ReadResult struct {
	N   int
	Err error
}

// Read returns a future that completes with the number of bytes read into
// buf. Registration with the reactor is deferred to the future's first
// poll, same as Listener.Accept. I/O errors are delivered as a ready result
// rather than a panic: the caller decides whether to retry or abort.
//
// Only one Read future should be in flight per Stream at a time; see
// Listener.Accept's note on concurrent operations over one registration.
func (s *Stream) Read(buf []byte) *ReadFuture {
	return &ReadFuture{stream: s, buf: buf}
}

// ReadFuture is the future returned by Stream.Read.
type ReadFuture struct {
	stream *Stream
	buf    []byte
	live   bool
}

// Cancel deregisters the stream's read interest if this future hasn't
// already completed. See AcceptFuture.Cancel.
func (f *ReadFuture) Cancel() {
	if f.live {
		kestrel.Deregister(f.stream.fd)
		f.live = false
	}
}

func (f *ReadFuture) Poll(cx *kestrel.Context) (ReadResult, bool) {
	s := f.stream
	if s.closed {
		f.Cancel()
		return ReadResult{Err: kestrel.ErrStreamClosed}, true
	}

	if !f.live {
		kestrel.Register(s.fd, kestrel.InterestReadable)
		f.live = true
	}

	n, err := unix.Read(s.fd, f.buf)
	switch {
	case err == nil:
		f.Cancel()
		if n < 0 {
			n = 0
		}
		return ReadResult{N: n}, true
	case err == unix.EAGAIN:
		kestrel.UpdateWaker(s.fd, cx.Waker().Clone())
		return ReadResult{}, false
	default:
		f.Cancel()
		return ReadResult{Err: fmt.Errorf("kestrel/tcp: read: %w", err)}, true
	}
}

// WriteResult is the output of the future returned by Stream.Write.
type WriteResult struct {
	N   int
	Err error
}

// Write returns a future that completes with the number of bytes written
// from buf. Registration is deferred to first poll, same as Read. Short
// writes are returned as-is; the runtime never retries I/O on the caller's
// behalf, so callers that need the whole buffer flushed loop Write
// themselves. I/O errors are a ready result, same policy as Read.
func (s *Stream) Write(buf []byte) *WriteFuture {
	return &WriteFuture{stream: s, buf: buf}
}

// WriteFuture is the future returned by Stream.Write.
type WriteFuture struct {
	stream *Stream
	buf    []byte
	live   bool
}

// Cancel deregisters the stream's write interest if this future hasn't
// already completed.
func (f *WriteFuture) Cancel() {
	if f.live {
		kestrel.Deregister(f.stream.fd)
		f.live = false
	}
}

func (f *WriteFuture) Poll(cx *kestrel.Context) (WriteResult, bool) {
	s := f.stream
	if s.closed {
		f.Cancel()
		return WriteResult{Err: kestrel.ErrStreamClosed}, true
	}

	if !f.live {
		kestrel.Register(s.fd, kestrel.InterestWritable)
		f.live = true
	}

	n, err := unix.Write(s.fd, f.buf)
	switch {
	case err == nil:
		f.Cancel()
		return WriteResult{N: n}, true
	case err == unix.EAGAIN:
		kestrel.UpdateWaker(s.fd, cx.Waker().Clone())
		return WriteResult{}, false
	default:
		f.Cancel()
		return WriteResult{Err: fmt.Errorf("kestrel/tcp: write: %w", err)}, true
	}
}
