package corebridge

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run() is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("corebridge: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a terminated loop.
	ErrLoopTerminated = errors.New("corebridge: loop has been terminated")

	// ErrReentrantRun is returned when Run() is called from within the loop itself.
	ErrReentrantRun = errors.New("corebridge: cannot call Run() from within the loop")

	// ErrCallFromLoopThread is returned by [CallSync] when invoked on the loop
	// goroutine, where blocking on the loop would deadlock.
	ErrCallFromLoopThread = errors.New("corebridge: synchronous call from the loop goroutine would deadlock")

	// ErrNilCallback is returned when a nil callback is passed to a
	// registration or scheduling operation.
	ErrNilCallback = errors.New("corebridge: nil callback")
)

// ErrorCode identifies the kind of failure reported by the native engine.
//
// The set of codes is closed: every code the engine can report maps to
// exactly one sentinel kind error below, and unrecognized codes map to
// [ErrUnknownFailure]. See [ReconstructError].
type ErrorCode uint32

const (
	// CodeGeneric is a failure with no more specific classification.
	CodeGeneric ErrorCode = iota + 1
	// CodeInvalidArgument indicates the engine rejected an argument.
	CodeInvalidArgument
	// CodeConnectFailure indicates a connection could not be established.
	CodeConnectFailure
	// CodeAuthFailure indicates the engine could not authenticate.
	CodeAuthFailure
	// CodeTimeout indicates the operation timed out inside the engine.
	CodeTimeout
	// CodeTemporaryFailure indicates a transient condition worth retrying.
	CodeTemporaryFailure
	// CodeNotSupported indicates the engine does not implement the operation.
	CodeNotSupported
)

// Sentinel kind errors, one per [ErrorCode], for use with [errors.Is].
var (
	ErrGenericFailure   = errors.New("corebridge: generic failure")
	ErrInvalidArgument  = errors.New("corebridge: invalid argument")
	ErrConnectFailure   = errors.New("corebridge: connect failure")
	ErrAuthFailure      = errors.New("corebridge: authentication failure")
	ErrTimeout          = errors.New("corebridge: operation timed out")
	ErrTemporaryFailure = errors.New("corebridge: temporary failure")
	ErrNotSupported     = errors.New("corebridge: operation not supported")

	// ErrUnknownFailure is the kind assigned to codes outside the declared set.
	ErrUnknownFailure = errors.New("corebridge: unknown failure")
)

// errorKinds is the closed mapping from native error codes to host kinds.
var errorKinds = map[ErrorCode]error{
	CodeGeneric:          ErrGenericFailure,
	CodeInvalidArgument:  ErrInvalidArgument,
	CodeConnectFailure:   ErrConnectFailure,
	CodeAuthFailure:      ErrAuthFailure,
	CodeTimeout:          ErrTimeout,
	CodeTemporaryFailure: ErrTemporaryFailure,
	CodeNotSupported:     ErrNotSupported,
}

// CoreError is a host error reconstructed from the native engine's declared
// error code and payload. It is the only error type delivered through a
// rejected [Future]: callers never observe a raw native handle or an
// untyped failure.
type CoreError struct {
	kind    error
	Payload any
	Context string
	Code    ErrorCode
}

// ReconstructError materializes a typed host error from the code, payload,
// and context reported by the native engine.
func ReconstructError(code ErrorCode, payload any, context string) *CoreError {
	kind, ok := errorKinds[code]
	if !ok {
		kind = ErrUnknownFailure
	}
	return &CoreError{
		kind:    kind,
		Payload: payload,
		Context: context,
		Code:    code,
	}
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (code %d): %s", e.kind.Error(), e.Code, e.Context)
	}
	return fmt.Sprintf("%s (code %d)", e.kind.Error(), e.Code)
}

// Unwrap returns the sentinel kind error, enabling [errors.Is] matching
// against the declared taxonomy.
func (e *CoreError) Unwrap() error {
	return e.kind
}
