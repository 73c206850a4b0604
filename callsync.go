package corebridge

import (
	"context"
)

// loopThreadChecker is the optional capability used to detect calls that
// would deadlock by blocking the loop goroutine on itself. [SelectorLoop]
// implements it; foreign loops may too.
type loopThreadChecker interface {
	IsLoopThread() bool
}

// CallSync runs fn on the loop goroutine and blocks the calling goroutine
// until fn returns or ctx is done.
//
// This is the bridge for reactor-style integrations where caller code runs
// on worker goroutines: work is submitted to the loop together with a
// one-shot result channel, and the caller blocks on the channel receive.
//
// Calling CallSync from the loop goroutine itself returns
// [ErrCallFromLoopThread] when the loop exposes that capability. If ctx
// expires first, fn may still run later on the loop goroutine; only the wait
// is abandoned.
func CallSync(ctx context.Context, loop Loop, fn func() (any, error)) (any, error) {
	if c, ok := loop.(loopThreadChecker); ok && c.IsLoopThread() {
		return nil, ErrCallFromLoopThread
	}

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)

	if err := loop.Submit(func() {
		value, err := fn()
		ch <- outcome{value: value, err: err}
	}); err != nil {
		return nil, err
	}

	select {
	case out := <-ch:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
