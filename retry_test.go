package corebridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTryNTimes_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := TryNTimes(context.Background(), "flaky", 5, time.Millisecond, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, ErrTemporaryFailure
		}
		return "done", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "done" || calls != 3 {
		t.Fatalf("got %v after %d calls", got, calls)
	}
}

func TestTryNTimes_Exhausted(t *testing.T) {
	last := errors.New("still broken")
	calls := 0
	_, err := TryNTimes(context.Background(), "broken", 3, 0, func(ctx context.Context) (any, error) {
		calls++
		return nil, last
	})

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || exhausted.Op != "broken" {
		t.Fatalf("unexpected terminal error: %+v", exhausted)
	}
	if !errors.Is(err, last) {
		t.Fatal("terminal error must wrap the final attempt's error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestTryNTimes_UnexpectedErrorPropagates(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	_, err := TryNTimes(context.Background(), "guarded", 5, 0, func(ctx context.Context) (any, error) {
		calls++
		return nil, fatal
	}, ErrTemporaryFailure)

	if err != fatal {
		t.Fatalf("unexpected error must propagate immediately, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("no retry after an unexpected error, got %d calls", calls)
	}
}

func TestTryNTimes_ExpectedListScopesRetry(t *testing.T) {
	calls := 0
	_, err := TryNTimes(context.Background(), "scoped", 4, 0, func(ctx context.Context) (any, error) {
		calls++
		if calls < 2 {
			// Wrapped expected errors match via errors.Is.
			return nil, ReconstructError(CodeTemporaryFailure, nil, "busy")
		}
		return calls, nil
	}, ErrTemporaryFailure)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestTryNTimes_ContextCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := TryNTimes(ctx, "slow", 3, time.Hour, func(ctx context.Context) (any, error) {
		return nil, ErrTemporaryFailure
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not interrupt the interval sleep")
	}
}

func TestTryNTimes_InvalidArgs(t *testing.T) {
	if _, err := TryNTimes(context.Background(), "x", 0, 0, func(ctx context.Context) (any, error) { return nil, nil }); err == nil {
		t.Fatal("zero attempts must be rejected")
	}
	if _, err := TryNTimes(context.Background(), "x", 1, -time.Second, func(ctx context.Context) (any, error) { return nil, nil }); err == nil {
		t.Fatal("negative interval must be rejected")
	}
}

func TestTryNTimesUntilError_ConvergesOnExpectedError(t *testing.T) {
	calls := 0
	err := TryNTimesUntilError(context.Background(), "deleted", 5, 0, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return "still there", nil
		}
		return nil, ErrNotSupported
	}, ErrNotSupported)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestTryNTimesUntilError_NotObserved(t *testing.T) {
	err := TryNTimesUntilError(context.Background(), "lingering", 3, 0, func(ctx context.Context) (any, error) {
		return "still there", nil
	}, ErrNotSupported)

	var notObserved *ErrorNotObservedError
	if !errors.As(err, &notObserved) {
		t.Fatalf("expected *ErrorNotObservedError, got %v", err)
	}
	if notObserved.Attempts != 3 || notObserved.Op != "lingering" {
		t.Fatalf("unexpected terminal error: %+v", notObserved)
	}
}

func TestTryNTimesUntilError_UnexpectedErrorPropagates(t *testing.T) {
	fatal := errors.New("io error")
	calls := 0
	err := TryNTimesUntilError(context.Background(), "guarded", 5, 0, func(ctx context.Context) (any, error) {
		calls++
		return nil, fatal
	}, ErrNotSupported)
	if err != fatal {
		t.Fatalf("unexpected error must propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryPoller_Constructor(t *testing.T) {
	r, err := NewRetryPoller(WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.TryNTimes(context.Background(), "ok", 1, 0, func(ctx context.Context) (any, error) {
		return 1, nil
	})
	if err != nil || got != 1 {
		t.Fatalf("got (%v, %v)", got, err)
	}
}
