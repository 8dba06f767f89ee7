package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/infumatch/negotiator/llm"
)

// ErrConfiguration indicates a malformed request (e.g. missing organization
// name in the sender profile). Not retryable.
var ErrConfiguration = errors.New("configuration error")

// Code is the stable error code surfaced to callers on pipeline failure.
type Code string

const (
	CodeUpstreamUnavailable Code = "UpstreamUnavailable"
	CodeInvalidResponse     Code = "InvalidResponse"
	CodeTimeout             Code = "Timeout"
	CodeCancelled           Code = "Cancelled"
	CodeConfiguration       Code = "ConfigurationError"
)

// PipelineError is a pipeline-fatal failure. It carries the stage that broke
// and the partial trace collected so far, so callers can diagnose the run.
type PipelineError struct {
	Stage Stage
	Code  Code
	Trace []TraceEntry
	err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s (%s): %v", e.Stage, e.Code, e.err)
}

func (e *PipelineError) Unwrap() error {
	return e.err
}

// CodeForError maps an underlying error to its pipeline error code.
func CodeForError(err error) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case llm.IsInvalidResponse(err):
		return CodeInvalidResponse
	case llm.IsUpstreamUnavailable(err):
		return CodeUpstreamUnavailable
	default:
		return CodeUpstreamUnavailable
	}
}
