package kestrel

import (
	"fmt"
	"runtime"
	"sync"
)

// Scheduler owns the set of live spawned computations and the queue of
// computations ready to make progress. It is single-threaded and
// cooperative: tasks run only when polled, and polling happens only on the
// goroutine driving BlockOn.
type Scheduler struct {
	opts schedulerOptions

	ids     taskIDGenerator
	tasks   map[TaskID]Task
	pending []TaskID

	reactor *reactor
}

// NewScheduler constructs an unbound Scheduler. It does nothing observable
// until passed to BlockOn.
func NewScheduler(opts ...Option) *Scheduler {
	return &Scheduler{
		opts:  resolveSchedulerOptions(opts),
		tasks: make(map[TaskID]Task),
	}
}

// schedule appends id to the pending queue. Called by a Waker on wake.
// Duplicate entries are permitted; a re-poll that finds no progress simply
// re-suspends.
func (s *Scheduler) schedule(id TaskID) {
	s.pending = append(s.pending, id)
}

// runtimeSlot anchors the installed runtime. Go exposes no goroutine- or
// OS-thread-local storage, so the per-thread runtime slot is a single
// process-wide slot guarded by a run-state machine, combined with
// runtime.LockOSThread so the calling goroutine owns an OS thread for the
// life of the BlockOn call. One installed runtime per process is the
// resulting restriction; installing a second concurrently panics the same
// way installing a second on one thread would.
var runtimeSlot struct {
	mu    sync.Mutex
	state fastState
	sched *Scheduler
}

// currentScheduler returns the installed Scheduler, or panics: spawning or
// signalling with no runtime installed is a programming error, not a
// condition a caller can recover from.
func currentScheduler() *Scheduler {
	runtimeSlot.mu.Lock()
	defer runtimeSlot.mu.Unlock()
	if runtimeSlot.state.load() != stateInstalled {
		panic(ErrNoRuntimeInstalled)
	}
	return runtimeSlot.sched
}

// requireInstalledFor panics unless sched is the currently installed
// Scheduler. This guards Waker signalling against a waker held past the end
// of the BlockOn call it was created under, turning a stale wake-up into a
// hard failure instead of a silent misroute.
func requireInstalledFor(sched *Scheduler) *Scheduler {
	runtimeSlot.mu.Lock()
	defer runtimeSlot.mu.Unlock()
	if runtimeSlot.state.load() != stateInstalled || runtimeSlot.sched != sched {
		panic(ErrNoRuntimeInstalled)
	}
	return sched
}

// installedReactor returns the installed reactor, or nil when no runtime is
// installed.
func installedReactor() *reactor {
	runtimeSlot.mu.Lock()
	defer runtimeSlot.mu.Unlock()
	if runtimeSlot.state.load() != stateInstalled {
		return nil
	}
	return runtimeSlot.sched.reactor
}

// currentReactor returns the installed reactor, for use by suspendable I/O
// operations such as those in the tcp subpackage.
func currentReactor() *reactor {
	return currentScheduler().reactor
}

// Register associates fd with the currently installed reactor's kernel
// multiplexor for the given interest. It is exported for implementers of new
// suspendable I/O operations (see the tcp subpackage); ordinary users of
// Listener/Stream never call it directly. Panics if no runtime is installed.
func Register(fd int, interest Interest) {
	currentReactor().register(fd, interest)
}

// UpdateWaker replaces the wake handle registered for fd, so that the latest
// poller is the one resumed. See Register.
func UpdateWaker(fd int, w *Waker) {
	currentReactor().updateWaker(fd, w)
}

// Deregister removes fd's registration from the currently installed reactor.
// Unlike Register, it is a no-op when no runtime is installed: deregistration
// runs on cancellation and close paths, which must stay callable after
// BlockOn has returned and torn the reactor down along with every
// registration it held.
func Deregister(fd int) {
	if r := installedReactor(); r != nil {
		r.remove(fd)
	}
}

// Spawn appends task to the current runtime's ready queue. Requires a
// runtime be installed on the current thread (panics otherwise). The task's
// eventual output is discarded. Spawn does not poll; the task runs on a
// subsequent drain of the pending queue.
func Spawn(task Task) {
	s := currentScheduler()
	id := s.ids.next()
	s.tasks[id] = task
	s.pending = append(s.pending, id)
	s.opts.logger.Debugf("spawn task=%d", id)
}

// install brings up s as the thread's runtime. Panics if one is already
// installed.
func install(s *Scheduler) {
	runtime.LockOSThread()

	runtimeSlot.mu.Lock()
	if runtimeSlot.state.load() == stateInstalled {
		runtimeSlot.mu.Unlock()
		runtime.UnlockOSThread()
		panic(ErrRuntimeAlreadyInstalled)
	}

	r, err := newReactor(s.opts.epollBatchSize)
	if err != nil {
		runtimeSlot.mu.Unlock()
		runtime.UnlockOSThread()
		panic(fmt.Errorf("kestrel: installing runtime: %w", err))
	}
	s.reactor = r

	runtimeSlot.sched = s
	runtimeSlot.state.tryTransition(stateIdle, stateInstalled)
	runtimeSlot.mu.Unlock()

	s.opts.logger.Debugf("runtime installed")
}

// uninstall tears s down as the thread's runtime. Tasks still in the task
// map are dropped without further execution.
func uninstall(s *Scheduler) {
	runtimeSlot.mu.Lock()
	_ = s.reactor.close()
	runtimeSlot.sched = nil
	runtimeSlot.state.tryTransition(stateInstalled, stateIdle)
	runtimeSlot.mu.Unlock()

	s.tasks = make(map[TaskID]Task)
	s.pending = nil

	runtime.UnlockOSThread()
	s.opts.logger.Debugf("runtime uninstalled")
}

// BlockOn installs sched (and a fresh reactor) on the current thread, runs
// the main loop until main completes, uninstalls both, and returns main's
// output. Spawned tasks still live when main completes are dropped.
//
// The main computation is polled in place on the caller's stack so its typed
// output survives; spawned tasks are type-erased and their outputs
// discarded. BlockOn is a package-level function rather than a Scheduler
// method because Go methods cannot introduce type parameters beyond their
// receiver's, and T here is independent of *Scheduler.
func BlockOn[T any](sched *Scheduler, main Future[T]) T {
	install(sched)
	defer uninstall(sched)

	mainID := sched.ids.next()
	sched.pending = append(sched.pending, mainID)
	mainWaker := newWaker(sched, mainID)
	mainCx := &Context{waker: mainWaker}

	for {
		// Drain pending into a local batch up front: a task that wakes
		// itself mid-poll lands in the next iteration's batch, never the
		// current one.
		batch := sched.pending
		sched.pending = nil

		for _, id := range batch {
			if id == mainID {
				if out, ready := main.Poll(mainCx); ready {
					return out
				}
				continue
			}

			task, ok := sched.tasks[id]
			if !ok {
				// Already finished; a harmless duplicate pending entry.
				continue
			}
			delete(sched.tasks, id)

			w := newWaker(sched, id)
			if _, ready := task.Poll(&Context{waker: w}); !ready {
				sched.tasks[id] = task
			} else {
				sched.opts.logger.Debugf("task=%d completed", id)
			}
		}

		// Block on the reactor only if nothing woke during the drain;
		// otherwise a still-runnable task would be stuck behind an
		// epoll_wait with no timeout.
		if len(sched.pending) == 0 {
			sched.reactor.block()
		}
	}
}
