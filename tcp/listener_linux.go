//go:build linux

package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/kestrelrt/kestrel"
)

// Listener is a non-blocking TCP listening socket, built on raw
// golang.org/x/sys/unix calls rather than net.Listener so that the kestrel
// reactor owns every readiness registration itself.
type Listener struct {
	fd     int
	addr   net.Addr
	closed bool
}

// Bind creates a listening, non-blocking socket at address ("host:port", or
// ":port" to listen on all interfaces).
func Bind(address string) (*Listener, error) {
	sa, family, err := resolveTCPAddr(address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("kestrel/tcp: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("kestrel/tcp: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("kestrel/tcp: bind %s: %w", address, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("kestrel/tcp: listen: %w", err)
	}

	local, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("kestrel/tcp: getsockname: %w", err)
	}

	return &Listener{fd: fd, addr: sockaddrToAddr(local)}, nil
}

// LocalAddr returns the address the listener is bound to.
func (l *Listener) LocalAddr() net.Addr { return l.addr }

// Close deregisters the listener from the reactor, if registered, and closes
// the underlying socket. Any Accept future in flight resolves with
// ErrListenerClosed on its next poll.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	kestrel.Deregister(l.fd)
	return unix.Close(l.fd)
}

// AcceptResult is the output of the future returned by Accept.
type AcceptResult struct {
	Stream *Stream
	Addr   net.Addr
	Err    error
}

// Accept returns a future that completes with the next inbound connection.
// Registration with the reactor happens on the future's first poll rather
// than inside this constructor, so a caller may construct an Accept future
// (e.g. to pass to Select, or to BlockOn itself) before any runtime is
// installed. The registration count still goes up by exactly one, on first
// poll, and back down by exactly one when the future completes or is
// cancelled.
//
// Only one Accept future should be polled against a given Listener at a
// time: two concurrent ones would fight over the same fd's single reactor
// registration. This is enforced by convention rather than the type system.
func (l *Listener) Accept() *AcceptFuture {
	return &AcceptFuture{listener: l}
}

// AcceptFuture is the future returned by Listener.Accept.
type AcceptFuture struct {
	listener *Listener
	live     bool // registration is currently installed
}

// Cancel deregisters the listener from the reactor if this future had
// registered interest and hadn't already completed. Go runs no code when a
// value is merely discarded, so callers that abandon an in-flight Accept
// must call Cancel themselves to release the reactor registration. Safe to
// call more than once, and after the runtime has been torn down.
func (a *AcceptFuture) Cancel() {
	if a.live {
		kestrel.Deregister(a.listener.fd)
		a.live = false
	}
}

func (a *AcceptFuture) Poll(cx *kestrel.Context) (AcceptResult, bool) {
	l := a.listener
	if l.closed {
		a.Cancel()
		return AcceptResult{Err: kestrel.ErrListenerClosed}, true
	}
	if !a.live {
		kestrel.Register(l.fd, kestrel.InterestReadable)
		a.live = true
	}

	connFd, rawAddr, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	switch err {
	case nil:
		a.Cancel()
		return AcceptResult{Stream: &Stream{fd: connFd, remote: sockaddrToAddr(rawAddr)}, Addr: sockaddrToAddr(rawAddr)}, true
	case unix.EAGAIN:
		kestrel.UpdateWaker(l.fd, cx.Waker().Clone())
		return AcceptResult{}, false
	default:
		a.Cancel()
		return AcceptResult{Err: fmt.Errorf("kestrel/tcp: accept: %w", err)}, true
	}
}
