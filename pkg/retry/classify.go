package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// transientError marks an error as retryable regardless of its underlying type.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// permanentError marks an error as terminal regardless of its underlying type.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient wraps err so that IsTransient reports true for it.
// Callers use it when they have already classified a failure, for example a
// 5xx response that carries no network-level error.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Permanent wraps err so that IsTransient reports false for it even when the
// underlying error would otherwise classify as transient.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient classifies an error as a retryable network-level failure.
// Timeouts, connection resets, refused connections, and truncated responses
// are transient; everything else, including application-level errors, is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	var trans *transientError
	if errors.As(err, &trans) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Explicit cancellation is a caller decision, never retried.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// Truncated or empty responses from a dying backend.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// TransientStatus reports whether an HTTP status code should be treated as a
// transient failure. All 5xx responses are transient; 4xx responses are
// terminal application errors.
func TransientStatus(code int) bool {
	return code >= 500
}

// StatusError represents a non-2xx HTTP response classified for retry purposes.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

// NewStatusError wraps an HTTP status code, pre-classified as transient or
// permanent based on TransientStatus.
func NewStatusError(code int) error {
	err := &StatusError{Code: code}
	if TransientStatus(code) {
		return Transient(err)
	}
	return Permanent(err)
}
