package corebridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

// Operation is a call retried by [RetryPoller]. It may be an ordinary
// synchronous call or a wrapper awaiting a bridged future.
type Operation func(ctx context.Context) (any, error)

// RetryExhaustedError is the terminal error raised by
// [RetryPoller.TryNTimes] when the attempt budget elapses without success.
type RetryExhaustedError struct {
	Last     error
	Op       string
	Interval time.Duration
	Attempts int
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("corebridge: %s failed after %d attempts at %s intervals: %v",
		e.Op, e.Attempts, e.Interval, e.Last)
}

// Unwrap returns the error observed on the final attempt.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// ErrorNotObservedError is the terminal error raised by
// [RetryPoller.TryNTimesUntilError] when convergence to an expected failure
// state does not occur within budget.
type ErrorNotObservedError struct {
	Op       string
	Interval time.Duration
	Attempts int
}

// Error implements the error interface.
func (e *ErrorNotObservedError) Error() string {
	return fmt.Sprintf("corebridge: %s did not raise the expected error after %d attempts at %s intervals",
		e.Op, e.Attempts, e.Interval)
}

// RetryPoller is a bounded retry/poll helper used to absorb
// eventual-consistency delays. Both variants use a fixed interval and an
// attempt count; there is no exponential backoff, and the worst-case wait is
// attempts × interval excluding call latency.
type RetryPoller struct {
	logger *logiface.Logger[logiface.Event]
}

// NewRetryPoller constructs a RetryPoller.
func NewRetryPoller(opts ...Option) (*RetryPoller, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RetryPoller{logger: cfg.logger}, nil
}

// defaultRetryPoller backs the package-level convenience functions.
var defaultRetryPoller = &RetryPoller{}

// TryNTimes attempts op up to attempts times, returning immediately on
// success and sleeping interval between attempts.
//
// The expected list scopes which errors are retried: with a non-empty list,
// an error matching none of its entries propagates immediately; with an
// empty list every error is retried. After the budget is exhausted, the
// terminal *[RetryExhaustedError] carries name, the attempt count, the
// interval, and the final error.
//
// The interval sleeps are suspension points honoring ctx; cancellation
// surfaces as the context's error.
func (r *RetryPoller) TryNTimes(ctx context.Context, name string, attempts int, interval time.Duration, op Operation, expected ...error) (any, error) {
	if err := checkRetryArgs(attempts, interval); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if !matchesExpected(err, expected) {
			return nil, err
		}
		lastErr = err

		r.logger.Debug().
			Err(err).
			Str("op", name).
			Int("attempt", i+1).
			Int("attempts", attempts).
			Log("corebridge: retrying")

		if err := sleepInterval(ctx, interval); err != nil {
			return nil, err
		}
	}

	return nil, &RetryExhaustedError{
		Op:       name,
		Attempts: attempts,
		Interval: interval,
		Last:     lastErr,
	}
}

// TryNTimesUntilError polls op until it raises one of the expected errors,
// used to await eventual consistency of deletions.
//
// Each iteration calls op: raising an expected error succeeds immediately;
// succeeding without error sleeps interval and retries; raising an
// unexpected error propagates immediately with no retry. After attempts
// iterations without observing an expected error, the terminal
// *[ErrorNotObservedError] is returned.
func (r *RetryPoller) TryNTimesUntilError(ctx context.Context, name string, attempts int, interval time.Duration, op Operation, expected ...error) error {
	if err := checkRetryArgs(attempts, interval); err != nil {
		return err
	}

	for i := 0; i < attempts; i++ {
		_, err := op(ctx)
		if err != nil {
			if matchesExpected(err, expected) {
				return nil
			}
			return err
		}

		r.logger.Debug().
			Str("op", name).
			Int("attempt", i+1).
			Int("attempts", attempts).
			Log("corebridge: expected error not yet observed")

		if err := sleepInterval(ctx, interval); err != nil {
			return err
		}
	}

	return &ErrorNotObservedError{
		Op:       name,
		Attempts: attempts,
		Interval: interval,
	}
}

// TryNTimes calls [RetryPoller.TryNTimes] on a poller with defaults.
func TryNTimes(ctx context.Context, name string, attempts int, interval time.Duration, op Operation, expected ...error) (any, error) {
	return defaultRetryPoller.TryNTimes(ctx, name, attempts, interval, op, expected...)
}

// TryNTimesUntilError calls [RetryPoller.TryNTimesUntilError] on a poller
// with defaults.
func TryNTimesUntilError(ctx context.Context, name string, attempts int, interval time.Duration, op Operation, expected ...error) error {
	return defaultRetryPoller.TryNTimesUntilError(ctx, name, attempts, interval, op, expected...)
}

func checkRetryArgs(attempts int, interval time.Duration) error {
	if attempts < 1 {
		return fmt.Errorf("corebridge: attempt count must be positive: %d", attempts)
	}
	if interval < 0 {
		return fmt.Errorf("corebridge: retry interval must be non-negative: %s", interval)
	}
	return nil
}

// matchesExpected reports whether err matches the expected list. An empty
// list matches everything.
func matchesExpected(err error, expected []error) bool {
	if len(expected) == 0 {
		return true
	}
	for _, want := range expected {
		if errors.Is(err, want) {
			return true
		}
	}
	return false
}

// sleepInterval suspends for d, honoring ctx cancellation.
func sleepInterval(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
