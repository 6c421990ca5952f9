package domain

import "errors"

var (
	// ErrPhotoNotFound is returned when a photo cannot be found in the database
	ErrPhotoNotFound = errors.New("photo not found")

	// ErrJobNotFound is returned when an upload job cannot be found in the database
	ErrJobNotFound = errors.New("upload job not found")

	// ErrUnknownEventType is returned when an outbox payload carries an
	// event type this version does not recognize
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrUnsupportedMimeType is returned when a requested file's media type
	// is not on the configured allow-list
	ErrUnsupportedMimeType = errors.New("unsupported mime type")

	// ErrNotOwner is returned when a command references a photo that belongs
	// to a different user
	ErrNotOwner = errors.New("photo does not belong to user")

	// Construction guard errors
	ErrBlankPhotoID     = errors.New("photo id cannot be blank")
	ErrBlankJobID       = errors.New("job id cannot be blank")
	ErrBlankUserID      = errors.New("user id cannot be blank")
	ErrBlankFilename    = errors.New("filename cannot be blank")
	ErrBlankMimeType    = errors.New("mime type cannot be blank")
	ErrNonPositiveBytes = errors.New("bytes must be positive")
	ErrEmptyJob         = errors.New("upload job must contain at least one file")
)

// RetryableError wraps transient errors that should trigger a message requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
