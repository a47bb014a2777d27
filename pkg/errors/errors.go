// Package errors provides common domain error types for lumina.
//
// It defines sentinel errors for conditions shared across packages
// ("no active session", "invalid state") plus a coded PipelineError used by
// the post-processing pipeline to classify failures into the retryable /
// terminal taxonomy. Typed errors enable consistent errors.Is() handling.
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates the operation is not valid for the current
	// session state.
	ErrInvalidState = errors.New("invalid state")

	// ErrSessionActive indicates a meeting session is already running and a
	// second one may not start.
	ErrSessionActive = errors.New("session already active")

	// ErrNoSession indicates no meeting session is currently active.
	ErrNoSession = errors.New("no active session")

	// ErrBrowserClosed indicates the browser instance was torn down and can
	// no longer be driven.
	ErrBrowserClosed = errors.New("browser closed")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsSessionActive reports whether any error in err's chain is ErrSessionActive.
func IsSessionActive(err error) bool {
	return errors.Is(err, ErrSessionActive)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
