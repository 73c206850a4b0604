package corebridge

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
)

// TimerHandle is a cancellable deferred call returned by [Loop.CallLater].
type TimerHandle interface {
	// Cancel prevents the callback from firing. Idempotent; calling it after
	// the callback has fired is a no-op.
	Cancel()
}

// Loop is the capability set the native engine's adapters require of a host
// event loop.
//
// Compatibility with this interface is the compile-time analogue of probing a
// candidate loop's methods: a value that satisfies Loop is compatible, and
// anything else makes [LoopSelector.GetEventLoop] fall back to the portable
// [SelectorLoop].
type Loop interface {
	// AddReader registers fn to be called when fd is readable. Replaces any
	// prior read callback for fd.
	AddReader(fd int, fn func()) error

	// RemoveReader deregisters the read callback for fd, reporting whether a
	// registration existed.
	RemoveReader(fd int) bool

	// AddWriter registers fn to be called when fd is writable. Replaces any
	// prior write callback for fd.
	AddWriter(fd int, fn func()) error

	// RemoveWriter deregisters the write callback for fd, reporting whether a
	// registration existed.
	RemoveWriter(fd int) bool

	// CallLater arms a one-shot callback after delay.
	CallLater(delay time.Duration, fn func()) (TimerHandle, error)

	// Submit schedules fn to run on the loop goroutine.
	Submit(fn func()) error
}

// LoopSelector resolves the single process-wide working loop.
//
// The native engine is bound to exactly one I/O multiplexer at construction
// and cannot migrate mid-flight, so everything that touches the engine must
// agree on one loop. Rather than ambient global state, the selector is an
// explicitly constructed service injected into whatever needs it, with an
// explicit close/reset lifecycle exposed to the embedder.
type LoopSelector struct {
	loop   Loop
	owned  *SelectorLoop
	logger *logiface.Logger[logiface.Event]
	opts   []Option
	mu     sync.Mutex
}

// NewLoopSelector constructs a LoopSelector. Options are forwarded to any
// fallback [SelectorLoop] the selector constructs on demand.
func NewLoopSelector(opts ...Option) (*LoopSelector, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &LoopSelector{logger: cfg.logger, opts: opts}, nil
}

// GetEventLoop returns the working loop, resolving it on first use.
//
// If a working loop is already cached it is returned as-is. Otherwise
// preferred is probed: a value satisfying [Loop] is cached and returned, and
// anything else (including nil) causes the selector to construct, start, and
// cache the portable [SelectorLoop] fallback. Incompatibility is never an
// error; the only failure mode is the OS refusing resources for the fallback.
func (s *LoopSelector) GetEventLoop(preferred any) (Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil {
		return s.loop, nil
	}

	if l, ok := preferred.(Loop); ok && !isNilLoop(l) {
		s.loop = l
		return l, nil
	}

	l, err := NewSelectorLoop(s.opts...)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := l.Run(context.Background()); err != nil {
			s.logger.Err().
				Err(err).
				Log("corebridge: fallback loop exited")
		}
	}()

	s.loop = l
	s.owned = l
	return l, nil
}

// isNilLoop reports whether l is nil, including a typed-nil pointer boxed in
// a non-nil interface value. Every call on such a loop would panic.
func isNilLoop(l Loop) bool {
	if l == nil {
		return true
	}
	switch v := reflect.ValueOf(l); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// SetWorkingLoop caches the given loop, first-write-wins. It reports whether
// the write took effect; while a loop is cached, further calls are no-ops.
func (s *LoopSelector) SetWorkingLoop(l Loop) bool {
	if isNilLoop(l) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		return false
	}
	s.loop = l
	return true
}

// CloseEventLoop clears the cached working loop. If the selector owns the
// loop (it constructed the fallback), the loop is shut down first.
//
// The next [LoopSelector.GetEventLoop] call re-resolves from scratch and is
// guaranteed to yield an instance distinct from the prior one.
func (s *LoopSelector) CloseEventLoop() {
	s.mu.Lock()
	owned := s.owned
	s.loop = nil
	s.owned = nil
	s.mu.Unlock()

	if owned != nil {
		_ = owned.Shutdown(context.Background())
	}
}
