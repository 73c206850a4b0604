package corebridge

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// EventFlags is the native engine's READABLE/WRITABLE interest bitmask.
type EventFlags uint32

const (
	// FlagReadable requests notification when the socket is readable.
	FlagReadable EventFlags = 1 << iota
	// FlagWritable requests notification when the socket is writable.
	FlagWritable
)

// WatchAction is the native engine's watch/unwatch verb.
type WatchAction int32

const (
	// ActionWatch starts (or adjusts) notification for an event or timer.
	ActionWatch WatchAction = iota
	// ActionUnwatch stops notification for an event or timer.
	ActionUnwatch
)

// FDEvent is the native engine's per-socket watch state.
//
// Flags holds the currently registered interest and is owned by the
// [SocketWatcher]: it is updated as registrations are applied, and UNWATCH
// deregisters whatever Flags says is registered, not what the caller passes.
type FDEvent struct {
	OnReadable func()
	OnWritable func()
	FD         int
	Flags      EventFlags
}

// SocketWatcher translates the native engine's socket watch/unwatch requests
// into event-loop reader/writer registrations.
//
// The watcher is a stateless facade: the loop's registration table is
// authoritative, and [SocketWatcher.StartWatching]/[SocketWatcher.StopWatching]
// are no-ops. All calls must arrive on the loop goroutine (the engine's
// callbacks do), which is what makes the adapter lock-free.
type SocketWatcher struct {
	loop   Loop
	logger *logiface.Logger[logiface.Event]
}

// NewSocketWatcher constructs a SocketWatcher bound to the given loop.
func NewSocketWatcher(loop Loop, opts ...Option) (*SocketWatcher, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &SocketWatcher{loop: loop, logger: cfg.logger}, nil
}

// StartWatching is a no-op; the loop's registration table is authoritative.
func (w *SocketWatcher) StartWatching() {}

// StopWatching is a no-op; the loop's registration table is authoritative.
func (w *SocketWatcher) StopWatching() {}

// UpdateEvent applies a watch/unwatch request for ev's socket.
//
// For ActionWatch, each flag bit toggles independently: a bit present in
// flags but absent from ev.Flags registers the corresponding callback, and a
// bit absent from flags but present in ev.Flags deregisters it. Watching an
// already-watched flag keeps exactly one registration.
//
// For ActionUnwatch, the flags argument is ignored and whatever ev.Flags
// currently records is deregistered; unwatching an unwatched socket is a
// no-op.
//
// Registration failures propagate synchronously to the native engine's
// calling context.
func (w *SocketWatcher) UpdateEvent(ev *FDEvent, action WatchAction, flags EventFlags) error {
	switch action {
	case ActionWatch:
		if flags&FlagReadable != 0 {
			if ev.Flags&FlagReadable == 0 {
				if err := w.loop.AddReader(ev.FD, ev.OnReadable); err != nil {
					w.logger.Err().
						Err(err).
						Int("fd", ev.FD).
						Log("corebridge: add reader failed")
					return err
				}
				ev.Flags |= FlagReadable
			}
		} else if ev.Flags&FlagReadable != 0 {
			w.loop.RemoveReader(ev.FD)
			ev.Flags &^= FlagReadable
		}

		if flags&FlagWritable != 0 {
			if ev.Flags&FlagWritable == 0 {
				if err := w.loop.AddWriter(ev.FD, ev.OnWritable); err != nil {
					w.logger.Err().
						Err(err).
						Int("fd", ev.FD).
						Log("corebridge: add writer failed")
					return err
				}
				ev.Flags |= FlagWritable
			}
		} else if ev.Flags&FlagWritable != 0 {
			w.loop.RemoveWriter(ev.FD)
			ev.Flags &^= FlagWritable
		}

		return nil

	case ActionUnwatch:
		if ev.Flags&FlagReadable != 0 {
			w.loop.RemoveReader(ev.FD)
			ev.Flags &^= FlagReadable
		}
		if ev.Flags&FlagWritable != 0 {
			w.loop.RemoveWriter(ev.FD)
			ev.Flags &^= FlagWritable
		}
		return nil

	default:
		return fmt.Errorf("corebridge: unknown watch action %d", action)
	}
}
