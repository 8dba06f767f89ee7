package llm

import (
	"errors"
)

// Error classification for LLM calls.
//
// TransientError/FatalError drive the retry loop inside the client.
// ErrUpstreamUnavailable/ErrInvalidResponse are the stable error codes the
// gateway exposes to pipeline stages once retries are exhausted.

// ErrUpstreamUnavailable indicates the model endpoint could not be reached
// (network error, timeout, or exhausted retries).
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrInvalidResponse indicates the model responded but the output could not be
// parsed into the expected shape. Not retried — it signals a prompt or
// parsing bug, not a flaky endpoint.
var ErrInvalidResponse = errors.New("invalid response")

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsUpstreamUnavailable reports whether err carries the upstream-unavailable code.
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsInvalidResponse reports whether err carries the invalid-response code.
func IsInvalidResponse(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}
