package corebridge

import (
	"context"
	"sync"
)

// FutureState represents the lifecycle state of a [Future].
// A future starts in [FuturePending] and transitions exactly once to either
// [FutureResolved] or [FutureRejected]. Transitions are irreversible.
type FutureState int32

const (
	// FuturePending indicates the operation is still in progress.
	FuturePending FutureState = iota

	// FutureResolved indicates the operation completed successfully.
	FutureResolved

	// FutureRejected indicates the operation failed with an error.
	FutureRejected
)

// Future is the result of an in-flight native operation.
//
// A future settles exactly once: the first call to [Future.Resolve] or
// [Future.Reject] wins and all later calls are no-ops. Futures expose no
// cancellation of the underlying native operation; once dispatched, the
// operation runs to completion and only bridge bookkeeping is cleaned up.
//
// Settlement functions can be called from any goroutine.
type Future struct {
	value any
	err   error
	done  chan struct{}
	mu    sync.Mutex
	state FutureState
}

// NewFuture creates a pending future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// ResolvedFuture returns a future already carrying the given value.
func ResolvedFuture(value any) *Future {
	f := NewFuture()
	f.Resolve(value)
	return f
}

// RejectedFuture returns a future already carrying the given error.
func RejectedFuture(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// State returns the current [FutureState].
func (f *Future) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Value returns the success value, or nil while pending or rejected.
// Note a resolved future can legitimately carry a nil value.
func (f *Future) Value() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the rejection error, or nil while pending or resolved.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done returns a channel that is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Resolve settles the future with a value. Only the first settlement has any
// effect; the return value reports whether this call won.
func (f *Future) Resolve(value any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FuturePending {
		return false
	}
	f.state = FutureResolved
	f.value = value
	close(f.done)
	return true
}

// Reject settles the future with an error. Only the first settlement has any
// effect; the return value reports whether this call won.
func (f *Future) Reject(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FuturePending {
		return false
	}
	f.state = FutureRejected
	f.err = err
	close(f.done)
	return true
}

// Wait blocks until the future settles or ctx is done.
//
// On settlement it returns the success value or the rejection error. A nil
// result with a nil error means the operation resolved with no value.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == FutureRejected {
		return nil, f.err
	}
	return f.value, nil
}
