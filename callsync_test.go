package corebridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCallSync_RunsOnLoopAndReturnsResult(t *testing.T) {
	l, err := NewSelectorLoop()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = l.Run(context.Background()) }()
	defer func() { _ = l.Shutdown(context.Background()) }()

	got, err := CallSync(context.Background(), l, func() (any, error) {
		if !l.IsLoopThread() {
			return nil, errors.New("not on loop goroutine")
		}
		return "result", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "result" {
		t.Fatalf("expected result, got %v", got)
	}
}

func TestCallSync_PropagatesError(t *testing.T) {
	l, err := NewSelectorLoop()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = l.Run(context.Background()) }()
	defer func() { _ = l.Shutdown(context.Background()) }()

	want := errors.New("boom")
	_, err = CallSync(context.Background(), l, func() (any, error) {
		return nil, want
	})
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestCallSync_FromLoopGoroutineDeadlockGuard(t *testing.T) {
	l, err := NewSelectorLoop()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = l.Run(context.Background()) }()
	defer func() { _ = l.Shutdown(context.Background()) }()

	errCh := make(chan error, 1)
	if err := l.Submit(func() {
		_, err := CallSync(context.Background(), l, func() (any, error) {
			return nil, nil
		})
		errCh <- err
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != ErrCallFromLoopThread {
			t.Fatalf("expected ErrCallFromLoopThread, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop task never completed; deadlock guard missing")
	}
}

func TestCallSync_ContextAbandonsWait(t *testing.T) {
	l, err := NewSelectorLoop()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = l.Run(context.Background()) }()
	defer func() { _ = l.Shutdown(context.Background()) }()

	block := make(chan struct{})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = CallSync(ctx, l, func() (any, error) {
		<-block
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCallSync_SubmitErrorPropagates(t *testing.T) {
	loop := newFakeLoop()
	loop.submitErr = ErrLoopTerminated

	_, err := CallSync(context.Background(), loop, func() (any, error) {
		return nil, nil
	})
	if err != ErrLoopTerminated {
		t.Fatalf("expected ErrLoopTerminated, got %v", err)
	}
}

func TestCallSync_ForeignLoopWithoutThreadCheck(t *testing.T) {
	// A loop that does not expose IsLoopThread still works; the deadlock
	// guard is simply unavailable.
	loop := newFakeLoop()
	got, err := CallSync(context.Background(), loop, func() (any, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("got (%v, %v)", got, err)
	}
}
