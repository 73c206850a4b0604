package corebridge

import (
	"sync/atomic"
)

// LoopState represents the current state of the fallback loop.
//
// State Machine:
//
//	StateAwake → StateRunning          [Run()]
//	StateRunning → StateSleeping       [poll() via CAS]
//	StateRunning → StateTerminating    [Shutdown()]
//	StateSleeping → StateRunning       [wake via CAS]
//	StateSleeping → StateTerminating   [Shutdown()]
//	StateTerminating → StateTerminated [shutdown complete]
//	StateTerminated → (terminal)
//
// Use TryTransition (CAS) for the reversible states (Running, Sleeping) and
// Store only for the irreversible Terminated.
type LoopState uint64

const (
	// StateAwake indicates the loop has been created but not started.
	StateAwake LoopState = iota
	// StateRunning indicates the loop is actively processing tasks.
	StateRunning
	// StateSleeping indicates the loop is blocked in poll waiting for events.
	StateSleeping
	// StateTerminating indicates shutdown has been requested but not completed.
	StateTerminating
	// StateTerminated indicates the loop is fully shut down.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// loopState is a lock-free state machine over [LoopState].
type loopState struct {
	v atomic.Uint64
}

func newLoopState() *loopState {
	s := &loopState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *loopState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, without transition validation.
func (s *loopState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another,
// reporting success.
func (s *loopState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
