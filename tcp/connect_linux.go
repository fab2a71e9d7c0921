//go:build linux

package tcp

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kestrelrt/kestrel"
)

// ConnectResult is the output of the future returned by Dial.
type ConnectResult struct {
	Stream *Stream
	Err    error
}

// Dial opens an outbound non-blocking TCP connection to address. The
// returned future suspends on the writable-interest path while the kernel's
// deferred connect is in flight, then retrieves the final outcome through
// SO_ERROR, the standard non-blocking connect protocol.
func Dial(address string) *ConnectFuture {
	return &ConnectFuture{address: address}
}

// ConnectFuture is the future returned by Dial.
type ConnectFuture struct {
	address string
	fd      int
	live    bool
	started bool
}

// Cancel deregisters the in-progress connection's write interest, if any,
// and closes the partially connected socket. See AcceptFuture.Cancel.
func (f *ConnectFuture) Cancel() {
	if f.live {
		kestrel.Deregister(f.fd)
		f.live = false
	}
	if f.started {
		_ = unix.Close(f.fd)
		f.started = false
	}
}

func (f *ConnectFuture) Poll(cx *kestrel.Context) (ConnectResult, bool) {
	if !f.started {
		sa, family, err := resolveTCPAddr(f.address)
		if err != nil {
			return ConnectResult{Err: err}, true
		}
		fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			return ConnectResult{Err: fmt.Errorf("kestrel/tcp: socket: %w", err)}, true
		}
		f.fd = fd
		f.started = true

		err = unix.Connect(fd, sa)
		if err == nil {
			// The stream owns fd from here; a later Cancel must not close it.
			f.started = false
			return ConnectResult{Stream: newConnectedStream(fd)}, true
		}
		if err != unix.EINPROGRESS {
			f.Cancel()
			return ConnectResult{Err: fmt.Errorf("kestrel/tcp: connect %s: %w", f.address, err)}, true
		}
		kestrel.Register(fd, kestrel.InterestWritable)
		f.live = true
		kestrel.UpdateWaker(fd, cx.Waker().Clone())
		return ConnectResult{}, false
	}

	errno, err := unix.GetsockoptInt(f.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		f.Cancel()
		return ConnectResult{Err: fmt.Errorf("kestrel/tcp: getsockopt SO_ERROR: %w", err)}, true
	}
	if errno != 0 {
		f.Cancel()
		return ConnectResult{Err: fmt.Errorf("kestrel/tcp: connect %s: %w", f.address, unix.Errno(errno))}, true
	}

	kestrel.Deregister(f.fd)
	f.live = false
	f.started = false
	return ConnectResult{Stream: newConnectedStream(f.fd)}, true
}

func newConnectedStream(fd int) *Stream {
	s := &Stream{fd: fd}
	if peer, err := unix.Getpeername(fd); err == nil {
		s.remote = sockaddrToAddr(peer)
	}
	return s
}
