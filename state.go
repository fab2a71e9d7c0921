package kestrel

import "sync/atomic"

// runtimeState tracks whether a runtime is installed.
//
// State machine:
//
//	stateIdle      -> stateInstalled   [BlockOn entry]
//	stateInstalled -> stateIdle        [BlockOn return]
//
// There is no stateInstalled -> stateInstalled path: reinstalling over a
// live runtime is an error, enforced by install checking the state under
// runtimeSlot.mu rather than by holding a mutex across the whole run.
type runtimeState uint32

const (
	stateIdle runtimeState = iota
	stateInstalled
)

// fastState is a lock-free holder for runtimeState.
type fastState struct {
	v atomic.Uint32
}

func (s *fastState) load() runtimeState {
	return runtimeState(s.v.Load())
}

// tryTransition attempts an atomic from->to move and reports success.
func (s *fastState) tryTransition(from, to runtimeState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

func (s *fastState) store(to runtimeState) {
	s.v.Store(uint32(to))
}
