package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrAlreadyExists", ErrAlreadyExists, "already exists"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
		{"ErrCursorConflict", ErrCursorConflict, "cursor conflict"},
		{"ErrLockTimeout", ErrLockTimeout, "lock timeout"},
		{"ErrPlaintextTooLarge", ErrPlaintextTooLarge, "plaintext too large"},
		{"ErrDecodeMalformed", ErrDecodeMalformed, "decode failed: malformed token"},
		{"ErrDecodeCrypto", ErrDecodeCrypto, "decode failed: authentication failed"},
		{"ErrQueueFull", ErrQueueFull, "delivery queue full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrCursorConflict,
		ErrLockTimeout,
		ErrPlaintextTooLarge,
		ErrDecodeMalformed,
		ErrDecodeCrypto,
		ErrQueueFull,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestDecodeErrorsShareParent(t *testing.T) {
	for _, err := range []error{ErrDecodeMalformed, ErrDecodeCrypto} {
		wrapped := fmt.Errorf("decode access state: %w", err)
		if !errors.Is(wrapped, ErrDecode) {
			t.Errorf("expected %v to match ErrDecode", err)
		}
	}
}

func TestRemoteError(t *testing.T) {
	cause := errors.New("connection refused")
	transport := NewTransportError("list changes", cause)
	rejection := NewRejectionError("create link", 409, "conflict")

	if !IsTransport(transport) || IsRejection(transport) {
		t.Error("expected transport classification")
	}
	if !IsRejection(rejection) || IsTransport(rejection) {
		t.Error("expected rejection classification")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", transport), cause) {
		t.Error("expected transport error to unwrap to its cause")
	}
	if got := rejection.Error(); got != "create link: rejected with status 409: conflict" {
		t.Errorf("unexpected message %q", got)
	}
	if IsTransport(errors.New("plain")) {
		t.Error("plain error is not a remote error")
	}
}
