package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenExpired indicates a signed state token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a signed state token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrCursorConflict indicates the stored cursor moved since it was read
	ErrCursorConflict = errors.New("cursor conflict")

	// ErrLockTimeout indicates the per-account lock could not be acquired in time
	ErrLockTimeout = errors.New("lock timeout")

	// ErrPlaintextTooLarge indicates a secret exceeds the codec's plaintext bound
	ErrPlaintextTooLarge = errors.New("plaintext too large")

	// ErrDecode is the parent of every credential decoding failure.
	ErrDecode = errors.New("decode failed")

	// ErrDecodeMalformed indicates the token is not a well-formed encoding
	ErrDecodeMalformed = fmt.Errorf("%w: malformed token", ErrDecode)

	// ErrDecodeCrypto indicates the token is well-formed but fails authentication
	ErrDecodeCrypto = fmt.Errorf("%w: authentication failed", ErrDecode)

	// ErrQueueFull indicates the delivery queue has no room left
	ErrQueueFull = errors.New("delivery queue full")
)

// RemoteErrorKind distinguishes network failures from remote refusals.
type RemoteErrorKind string

const (
	// RemoteTransport means the call never produced an HTTP response
	RemoteTransport RemoteErrorKind = "transport"
	// RemoteRejection means the remote answered with a non-success status
	RemoteRejection RemoteErrorKind = "rejection"
)

// RemoteError is returned by the storage provider and automation platform clients.
type RemoteError struct {
	Op         string
	Kind       RemoteErrorKind
	StatusCode int
	Message    string
	Err        error
}

// NewTransportError wraps a network-level failure for op.
func NewTransportError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Kind: RemoteTransport, Err: err}
}

// NewRejectionError records a non-success response for op.
func NewRejectionError(op string, status int, message string) *RemoteError {
	return &RemoteError{Op: op, Kind: RemoteRejection, StatusCode: status, Message: message}
}

func (e *RemoteError) Error() string {
	switch e.Kind {
	case RemoteTransport:
		return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
	default:
		if e.Message == "" {
			return fmt.Sprintf("%s: rejected with status %d", e.Op, e.StatusCode)
		}
		return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level RemoteError.
func IsTransport(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteTransport
}

// IsRejection reports whether err is a RemoteError carrying a remote status.
func IsRejection(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteRejection
}
