package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorCode represents a classified pipeline or session error.
type ErrorCode string

const (
	// ErrTransientIO covers network/storage call failures that are worth
	// retrying with backoff.
	ErrTransientIO ErrorCode = "transient_io"

	// ErrTimeout covers operations that exceeded their time limit.
	ErrTimeout ErrorCode = "timeout"

	// ErrJoinFailed covers sessions where the browser never reached the
	// in-meeting state. Terminal for the session, no auto-retry.
	ErrJoinFailed ErrorCode = "join_failed"

	// ErrEmptyArtifact covers zero-byte or missing recordings. The pipeline
	// stops silently with a log, not an error escalation.
	ErrEmptyArtifact ErrorCode = "empty_artifact"

	// ErrEmptyTranscript covers transcription returning no text. Minutes
	// cannot be generated without a transcript.
	ErrEmptyTranscript ErrorCode = "empty_transcript"

	// ErrCollaboratorFailure covers transcription/minutes/notification call
	// errors. Aborts downstream stages, preserves upstream results.
	ErrCollaboratorFailure ErrorCode = "collaborator_failure"

	// ErrStageSkipped marks a stage opted out by configuration. Not an error
	// condition.
	ErrStageSkipped ErrorCode = "stage_skipped"

	// ErrContextCancelled covers operations cancelled by the user or system.
	ErrContextCancelled ErrorCode = "context_cancelled"

	// ErrProcessingError is the fallback for unclassified failures.
	ErrProcessingError ErrorCode = "processing_error"
)

// PipelineError is a structured error for session and pipeline failures.
type PipelineError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *PipelineError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)",
			e.Code, e.Stage, e.Duration.Truncate(time.Second), e.Timeout.Truncate(time.Second))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError with an explicit code.
func NewPipelineError(code ErrorCode, stage, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err's chain, or ErrProcessingError if
// none is present.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrProcessingError
}

// ClassifyError inspects an error and returns a *PipelineError with the
// appropriate code. Unrecognized errors map to ErrProcessingError.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	out := &PipelineError{Stage: stage, Cause: err, Message: err.Error()}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Code = ErrTimeout
		out.Message = "operation timed out"
		return out
	}
	if errors.Is(err, context.Canceled) {
		out.Code = ErrContextCancelled
		out.Message = "operation cancelled"
		return out
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		out.Code = ErrTransientIO
		return out
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "temporarily unavailable"),
		strings.Contains(lower, "i/o timeout"):
		out.Code = ErrTransientIO
	case strings.Contains(lower, "empty transcript"),
		strings.Contains(lower, "no transcript"):
		out.Code = ErrEmptyTranscript
	case strings.Contains(lower, "empty recording"),
		strings.Contains(lower, "recording is empty"),
		strings.Contains(lower, "no recording"):
		out.Code = ErrEmptyArtifact
	default:
		out.Code = ErrProcessingError
	}
	return out
}
