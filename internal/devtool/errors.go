package devtool

import (
	"errors"
	"fmt"
)

// Common errors returned by device operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, devtool.ErrChannelUnavailable) {
//	    // No port selected, or the port vanished.
//	}
var (
	// ErrChannelUnavailable is returned when no device port is selected
	// or the selected port is gone. Fatal: the caller must not retry
	// without user intervention.
	ErrChannelUnavailable = errors.New("device channel unavailable")

	// ErrHandshakeTimeout is returned when the device does not respond
	// during connection establishment. Recoverable: the coordinator
	// retries exactly once with backoff before giving up.
	ErrHandshakeTimeout = errors.New("device handshake timed out")

	// ErrConfiguration is returned for malformed configuration input
	// such as a broken manifest file. Fatal.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrFilesystem is returned for local read/write failures during
	// manifest building or sync apply. Recorded per path; a batch
	// continues past it.
	ErrFilesystem = errors.New("local filesystem error")

	// ErrPreempted is returned to waiters whose queued operation was
	// discarded by a newer preempting request. The operation never ran;
	// treat it as cancelled, not failed.
	ErrPreempted = errors.New("operation preempted")
)

// SubprocessError is returned when the device tool exits non-zero.
// It carries the stderr text for the user-visible message and optionally
// wraps one of the sentinel errors above when the failure text identifies
// a known transport condition.
type SubprocessError struct {
	// Cmd is the rendered command that failed.
	Cmd string

	// ExitCode is the tool's exit status.
	ExitCode int

	// Stderr is the trimmed stderr text.
	Stderr string

	// kind is the classified sentinel, if any.
	kind error
}

func (e *SubprocessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("device tool failed (exit %d): %s", e.ExitCode, e.Cmd)
	}
	return fmt.Sprintf("device tool failed (exit %d): %s: %s", e.ExitCode, e.Cmd, e.Stderr)
}

// Unwrap exposes the classified sentinel for errors.Is checks.
func (e *SubprocessError) Unwrap() error {
	return e.kind
}

// IsRetryable returns true if the error is likely to succeed on retry.
// Handshake timeouts and busy ports are often transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrHandshakeTimeout)
}

// IsFatal returns true if the error indicates a state that requires user
// intervention before any retry can succeed.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// No channel means nothing can run.
	if errors.Is(err, ErrChannelUnavailable) {
		return true
	}

	// Broken config needs fixing, not retrying.
	if errors.Is(err, ErrConfiguration) {
		return true
	}

	return false
}
