package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code        ErrorCode
	Retryable   bool
	Description string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTransientIO: {
		Code:        ErrTransientIO,
		Retryable:   true,
		Description: "Network or storage call failed; retried with backoff",
	},
	ErrTimeout: {
		Code:        ErrTimeout,
		Retryable:   true,
		Description: "Operation exceeded its time limit",
	},
	ErrJoinFailed: {
		Code:        ErrJoinFailed,
		Retryable:   false,
		Description: "Browser could not reach the in-meeting state",
	},
	ErrEmptyArtifact: {
		Code:        ErrEmptyArtifact,
		Retryable:   false,
		Description: "Recording file is missing or zero bytes",
	},
	ErrEmptyTranscript: {
		Code:        ErrEmptyTranscript,
		Retryable:   false,
		Description: "Transcription produced no text",
	},
	ErrCollaboratorFailure: {
		Code:        ErrCollaboratorFailure,
		Retryable:   false,
		Description: "External collaborator call failed",
	},
	ErrStageSkipped: {
		Code:        ErrStageSkipped,
		Retryable:   false,
		Description: "Stage disabled by configuration",
	},
	ErrContextCancelled: {
		Code:        ErrContextCancelled,
		Retryable:   false,
		Description: "Operation cancelled by user or system",
	},
	ErrProcessingError: {
		Code:        ErrProcessingError,
		Retryable:   false,
		Description: "Unclassified processing error",
	},
}

// IsRetryable returns true if the given error code represents a transient,
// retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetDescription returns the human-readable description for the given code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
