package corebridge

import (
	"time"

	"github.com/joeycumines/logiface"
)

// TimerState is the lifecycle state of a [TimerSlot].
type TimerState int32

const (
	// TimerIdle indicates the slot has never been armed.
	TimerIdle TimerState = iota
	// TimerArmed indicates a one-shot callback is scheduled.
	TimerArmed
	// TimerCancelled indicates the slot was cancelled before firing.
	TimerCancelled
	// TimerFired indicates the callback has run.
	TimerFired
)

// String returns a human-readable representation of the state.
func (s TimerState) String() string {
	switch s {
	case TimerIdle:
		return "Idle"
	case TimerArmed:
		return "Armed"
	case TimerCancelled:
		return "Cancelled"
	case TimerFired:
		return "Fired"
	default:
		return "Unknown"
	}
}

// TimerSlot is the native engine's logical timer. At most one live armed
// handle exists per slot: rearming always cancels the prior handle first, so
// duplicate fires representing the same logical timer cannot occur.
//
// Slots are mutated only from the loop goroutine and carry no locking.
type TimerSlot struct {
	// Fire is the callback invoked when the armed timer elapses.
	Fire func()

	handle TimerHandle
	state  TimerState
}

// State returns the slot's current [TimerState].
func (t *TimerSlot) State() TimerState {
	return t.state
}

// TimerBridge schedules and cancels the native engine's one-shot timers
// against the selected loop, converting the engine's microsecond intervals
// into the loop's native time unit.
type TimerBridge struct {
	loop   Loop
	logger *logiface.Logger[logiface.Event]
}

// NewTimerBridge constructs a TimerBridge bound to the given loop.
func NewTimerBridge(loop Loop, opts ...Option) (*TimerBridge, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &TimerBridge{loop: loop, logger: cfg.logger}, nil
}

// Schedule arms the slot to fire after the given number of microseconds.
// Any handle already armed on the slot is cancelled first, so at most one
// live handle exists per slot and only the newest ever fires.
func (b *TimerBridge) Schedule(t *TimerSlot, micros uint64) error {
	b.Cancel(t)
	delay := time.Duration(micros) * time.Microsecond
	handle, err := b.loop.CallLater(delay, func() {
		t.handle = nil
		t.state = TimerFired
		if t.Fire != nil {
			t.Fire()
		}
	})
	if err != nil {
		b.logger.Err().
			Err(err).
			Dur("delay", delay).
			Log("corebridge: timer schedule failed")
		return err
	}
	t.handle = handle
	t.state = TimerArmed
	return nil
}

// Cancel disarms the slot. Safe to call when the slot is already cancelled or
// has fired; cancelling before fire guarantees zero invocations of Fire.
func (b *TimerBridge) Cancel(t *TimerSlot) {
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
	if t.state == TimerArmed {
		t.state = TimerCancelled
	}
}

// UpdateTimer applies the native engine's timer request.
//
// ActionUnwatch cancels and returns. ActionWatch cancels any existing handle
// and then schedules a new one.
func (b *TimerBridge) UpdateTimer(t *TimerSlot, action WatchAction, micros uint64) error {
	b.Cancel(t)
	if action == ActionUnwatch {
		return nil
	}
	return b.Schedule(t, micros)
}
