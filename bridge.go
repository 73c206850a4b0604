package corebridge

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// OpCallback receives the success value of a completed native operation.
type OpCallback func(value any)

// OpErrback receives the error code, payload, and context of a failed native
// operation.
type OpErrback func(code ErrorCode, payload any, context string)

// PendingOperation is an in-flight native operation exposing the engine's
// one-shot completion callback protocol.
//
// The handle is foreign-owned: the bridge only registers and clears callback
// references, it never releases the handle itself.
type PendingOperation interface {
	// SetCallbacks registers the one-shot completion pair. The engine invokes
	// exactly one of them, on the loop goroutine, when the operation settles.
	SetCallbacks(onOK OpCallback, onErr OpErrback)

	// ClearCallbacks drops the registered callback references, breaking the
	// retain cycle between the native handle and the bridge closures.
	ClearCallbacks()
}

// CompletionBridge converts the native engine's one-shot callback protocol
// into futures.
//
// For every wrapped [PendingOperation], exactly one of the registered
// callbacks fires, exactly once: the future settles, the typed host error is
// reconstructed on rejection (see [ReconstructError]), and the operation's
// callback references are cleared so a spurious second native invocation has
// no observable effect.
type CompletionBridge struct {
	logger *logiface.Logger[logiface.Event]
}

// NewCompletionBridge constructs a CompletionBridge.
func NewCompletionBridge(opts ...Option) (*CompletionBridge, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CompletionBridge{logger: cfg.logger}, nil
}

// Complete wires the operation's completion callbacks to a new [Future] and
// returns it.
//
// Errors thrown by the synchronous dispatch that produced op never reach this
// method: they propagate to the caller before a PendingOperation exists (see
// [Adapt]). Only post-dispatch completion failures travel through the
// future's error channel, so one failing operation cannot crash the loop.
func (b *CompletionBridge) Complete(op PendingOperation) *Future {
	return b.complete(op, nil)
}

// complete is Complete plus a settlement observer. The observer runs before
// the future settles, on the goroutine delivering the native callback, which
// lets state machines (e.g. [Connector]) update their bookkeeping before any
// waiter can observe the settled future.
func (b *CompletionBridge) complete(op PendingOperation, onSettled func(err error)) *Future {
	f := NewFuture()

	// Guards against a misbehaving native layer invoking a callback twice, or
	// invoking both. The future's first-settlement-wins rule would already
	// absorb that, but the guard also keeps onSettled at-most-once.
	var fired atomic.Bool

	op.SetCallbacks(
		func(value any) {
			if !fired.CompareAndSwap(false, true) {
				return
			}
			if onSettled != nil {
				onSettled(nil)
			}
			f.Resolve(value)
			op.ClearCallbacks()
		},
		func(code ErrorCode, payload any, context string) {
			if !fired.CompareAndSwap(false, true) {
				return
			}
			err := ReconstructError(code, payload, context)
			b.logger.Debug().
				Uint64("code", uint64(code)).
				Str("context", context).
				Log("corebridge: operation failed")
			if onSettled != nil {
				onSettled(err)
			}
			f.Reject(err)
			op.ClearCallbacks()
		},
	)

	return f
}

// Adapt wraps a synchronous native dispatch function into an asynchronous
// one, applying the completion bridge once per exposed operation rather than
// per call.
//
// If dispatch fails before producing a [PendingOperation] (argument
// validation and similar precondition failures), the error propagates
// synchronously and is never converted into a rejected future.
func Adapt[Req any](b *CompletionBridge, dispatch func(Req) (PendingOperation, error)) func(Req) (*Future, error) {
	return func(req Req) (*Future, error) {
		op, err := dispatch(req)
		if err != nil {
			return nil, err
		}
		return b.Complete(op), nil
	}
}
