package corebridge

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/joeycumines/stumpy"
)

func TestWithLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
	).Logger()

	loop := newFakeLoop()
	loop.addReaderErr = errors.New("fd table full")
	w, err := NewSocketWatcher(loop, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	ev := &FDEvent{FD: 11, OnReadable: func() {}}
	if err := w.UpdateEvent(ev, ActionWatch, FlagReadable); err == nil {
		t.Fatal("expected registration failure")
	}

	out := buf.String()
	if !strings.Contains(out, `"fd":11`) {
		t.Fatalf("fd field missing from log output: %s", out)
	}
	if !strings.Contains(out, "fd table full") {
		t.Fatalf("error missing from log output: %s", out)
	}
	if !strings.Contains(out, "add reader failed") {
		t.Fatalf("message missing from log output: %s", out)
	}
}

func TestWithLogger_NilLoggerDisablesLogging(t *testing.T) {
	loop := newFakeLoop()
	loop.addReaderErr = errors.New("nope")
	w, err := NewSocketWatcher(loop, WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}

	// Must not panic with logging disabled.
	ev := &FDEvent{FD: 1, OnReadable: func() {}}
	if err := w.UpdateEvent(ev, ActionWatch, FlagReadable); err == nil {
		t.Fatal("expected registration failure")
	}
}

func TestWithTaskBudget_Validation(t *testing.T) {
	if _, err := NewSelectorLoop(WithTaskBudget(0)); err == nil {
		t.Fatal("zero task budget must be rejected")
	}
	if _, err := NewSelectorLoop(WithTaskBudget(-1)); err == nil {
		t.Fatal("negative task budget must be rejected")
	}
}
