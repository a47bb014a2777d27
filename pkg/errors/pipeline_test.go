package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "with stage",
			err:  &PipelineError{Code: ErrJoinFailed, Stage: "session", Message: "join button not found"},
			want: "join_failed: session: join button not found",
		},
		{
			name: "without stage",
			err:  &PipelineError{Code: ErrProcessingError, Message: "boom"},
			want: "processing_error: boom",
		},
		{
			name: "timeout with durations",
			err:  &PipelineError{Code: ErrTimeout, Stage: "transcribe", Duration: 61 * time.Second, Timeout: 60 * time.Second},
			want: "timeout: transcribe timed out after 1m1s (limit: 1m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewPipelineError(ErrCollaboratorFailure, "minutes", "ollama down", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewPipelineError(ErrEmptyTranscript, "transcribe", "", nil)); got != ErrEmptyTranscript {
		t.Errorf("CodeOf = %s, want %s", got, ErrEmptyTranscript)
	}
	if got := CodeOf(errors.New("plain")); got != ErrProcessingError {
		t.Errorf("CodeOf on plain error = %s, want %s", got, ErrProcessingError)
	}

	// Wrapped PipelineError is still found.
	wrapped := fmt.Errorf("outer: %w", NewPipelineError(ErrTimeout, "s", "", nil))
	if got := CodeOf(wrapped); got != ErrTimeout {
		t.Errorf("CodeOf on wrapped = %s, want %s", got, ErrTimeout)
	}
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: no route" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

var _ net.Error = fakeNetError{}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"cancelled", context.Canceled, ErrContextCancelled},
		{"net error", fakeNetError{}, ErrTransientIO},
		{"connection refused text", errors.New("dial tcp 127.0.0.1:11434: connection refused"), ErrTransientIO},
		{"empty transcript text", errors.New("empty transcript returned"), ErrEmptyTranscript},
		{"empty recording text", errors.New("recording is empty: /tmp/x.wav"), ErrEmptyArtifact},
		{"unknown", errors.New("something odd"), ErrProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "stage")
			if tt.err == nil {
				if got != nil {
					t.Fatal("expected nil for nil error")
				}
				return
			}
			if got.Code != tt.want {
				t.Errorf("ClassifyError code = %s, want %s", got.Code, tt.want)
			}
			if got.Stage != "stage" {
				t.Errorf("expected stage to be set, got %q", got.Stage)
			}
		})
	}
}

func TestClassifyError_PreservesExistingCode(t *testing.T) {
	orig := NewPipelineError(ErrJoinFailed, "session", "not admitted", nil)
	got := ClassifyError(fmt.Errorf("wrap: %w", orig), "other")
	if got.Code != ErrJoinFailed {
		t.Errorf("expected existing code preserved, got %s", got.Code)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorCode{ErrTransientIO, ErrTimeout}
	for _, code := range retryable {
		if !IsRetryable(code) {
			t.Errorf("expected %s to be retryable", code)
		}
	}
	terminal := []ErrorCode{ErrJoinFailed, ErrEmptyArtifact, ErrEmptyTranscript,
		ErrCollaboratorFailure, ErrStageSkipped, ErrContextCancelled, ErrProcessingError}
	for _, code := range terminal {
		if IsRetryable(code) {
			t.Errorf("expected %s to be terminal", code)
		}
	}
	if IsRetryable("unknown_code") {
		t.Error("unknown codes must not be retryable")
	}
}
