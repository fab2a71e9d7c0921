//go:build linux

package kestrel

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// reactor owns the kernel readiness multiplexor (epoll) and a mapping from
// registered descriptors to the wake handle of the operation currently
// interested in them. It blocks the thread when no computation is runnable
// and translates kernel events into wake-ups. Level-triggered mode
// throughout: a future woken before it has drained all available data still
// sees readiness on its next poll.
type reactor struct {
	epfd int

	mu     sync.Mutex
	wakers map[uint64]*Waker

	batch []unix.EpollEvent
}

func newReactor(batchSize int) (*reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("kestrel: epoll_create1: %w", err)
	}
	if batchSize <= 0 {
		batchSize = defaultEpollBatchSize
	}
	return &reactor{
		epfd:   epfd,
		wakers: make(map[uint64]*Waker),
		batch:  make([]unix.EpollEvent, batchSize),
	}, nil
}

// token is the raw descriptor number widened to 64 bits: safe because only
// one registration per descriptor is permitted at any time, and remove() is
// called from every operation future's cancellation path before the
// descriptor number can be recycled.
func token(fd int) uint64 { return uint64(uint32(fd)) }

func interestToEpoll(i Interest) uint32 {
	var e uint32
	if i&InterestReadable != 0 {
		e |= unix.EPOLLIN
	}
	if i&InterestWritable != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

// register associates fd with the epoll instance for the given interest.
// Duplicate registration (EEXIST) is suppressed silently: operation futures
// register each time a new future is constructed, and the descriptor may
// already be registered from a previous operation on the same socket, in
// which case the existing interest is assumed valid. Any other epoll_ctl
// failure is unrecoverable and panics.
func (r *reactor) register(fd int, interest Interest) {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil && err != unix.EEXIST {
		panic(fmt.Errorf("kestrel: epoll_ctl add fd %d: %w", fd, err))
	}
}

// updateWaker replaces the wake handle stored for fd so that the latest
// poller, not a stale one, is resumed on the next readiness event.
func (r *reactor) updateWaker(fd int, w *Waker) {
	r.mu.Lock()
	r.wakers[token(fd)] = w
	r.mu.Unlock()
}

// remove deregisters fd from epoll and drops its stored waker. Kernel errors
// are ignored: the descriptor may already be closed, which is the common
// case when remove runs from a cancellation path after the underlying
// socket was closed out from under it.
func (r *reactor) remove(fd int) {
	r.mu.Lock()
	delete(r.wakers, token(fd))
	r.mu.Unlock()
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// block waits indefinitely for at least one readiness event, then invokes
// wake-by-reference on every waker whose descriptor fired. It never removes
// a waker as a side effect: only remove() does that, so a waker survives
// across block() calls until its operation completes or is cancelled.
func (r *reactor) block() {
	n, err := unix.EpollWait(r.epfd, r.batch, -1)
	if err != nil {
		if err == unix.EINTR {
			return
		}
		panic(fmt.Errorf("kestrel: epoll_wait: %w", err))
	}

	// Collect first, wake after releasing the lock: waking re-enters the
	// scheduler and must not happen while the wakers map is held.
	var toWake []*Waker
	r.mu.Lock()
	for i := 0; i < n; i++ {
		if w, ok := r.wakers[token(int(r.batch[i].Fd))]; ok {
			toWake = append(toWake, w)
		}
	}
	r.mu.Unlock()

	for _, w := range toWake {
		w.WakeByRef()
	}
}

func (r *reactor) close() error {
	return unix.Close(r.epfd)
}
