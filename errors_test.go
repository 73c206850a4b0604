package corebridge

import (
	"errors"
	"strings"
	"testing"
)

func TestReconstructError_KnownCodes(t *testing.T) {
	for code, kind := range map[ErrorCode]error{
		CodeGeneric:          ErrGenericFailure,
		CodeInvalidArgument:  ErrInvalidArgument,
		CodeConnectFailure:   ErrConnectFailure,
		CodeAuthFailure:      ErrAuthFailure,
		CodeTimeout:          ErrTimeout,
		CodeTemporaryFailure: ErrTemporaryFailure,
		CodeNotSupported:     ErrNotSupported,
	} {
		err := ReconstructError(code, nil, "")
		if !errors.Is(err, kind) {
			t.Errorf("code %d: expected kind %v, got %v", code, kind, err)
		}
	}
}

func TestReconstructError_UnknownCode(t *testing.T) {
	err := ReconstructError(ErrorCode(9999), "payload", "while testing")
	if !errors.Is(err, ErrUnknownFailure) {
		t.Fatalf("expected unknown failure kind, got %v", err)
	}
	if err.Code != 9999 {
		t.Fatalf("code not preserved: %d", err.Code)
	}
	if err.Payload != "payload" {
		t.Fatalf("payload not preserved: %v", err.Payload)
	}
}

func TestReconstructError_DistinctKinds(t *testing.T) {
	err := ReconstructError(CodeTimeout, nil, "read deadline")
	if errors.Is(err, ErrConnectFailure) {
		t.Fatal("timeout error must not match connect failure")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("timeout error must match the timeout kind")
	}
}

func TestCoreError_Message(t *testing.T) {
	err := ReconstructError(CodeAuthFailure, nil, "bad token")
	if !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("context missing from message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "authentication") {
		t.Fatalf("kind missing from message: %s", err.Error())
	}

	bare := ReconstructError(CodeGeneric, nil, "")
	if strings.HasSuffix(bare.Error(), ": ") {
		t.Fatalf("dangling separator without context: %s", bare.Error())
	}
}

func TestCoreError_AsTarget(t *testing.T) {
	var target *CoreError
	err := error(ReconstructError(CodeConnectFailure, 7, "refused"))
	if !errors.As(err, &target) {
		t.Fatal("errors.As should match *CoreError")
	}
	if target.Code != CodeConnectFailure || target.Context != "refused" {
		t.Fatalf("unexpected target: %+v", target)
	}
}
