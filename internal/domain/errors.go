package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrEmptyPrompt is returned when a submission carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrPromptTooLarge is returned when the prompt exceeds the size limit.
	ErrPromptTooLarge = errors.New("prompt exceeds maximum size (8KB)")

	// ErrUnknownModel is returned when an unsupported model is submitted.
	ErrUnknownModel = errors.New("unknown or unsupported model")

	// ErrInvalidState is returned when an operation is not permitted in the
	// job's current status, e.g. cancelling a terminal job.
	ErrInvalidState = errors.New("operation not permitted in current job status")

	// ErrStatusConflict is returned when a compare-and-set status update
	// finds the job in a status other than the expected one. The caller
	// lost a race and must not proceed with its transition.
	ErrStatusConflict = errors.New("job status changed concurrently")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")

	// ErrArtifactNotFound is returned when no artifact or metadata document
	// exists for a job id.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// BackendError classifies a generation or storage failure as transient
// (worth retrying) or permanent (never retried). Both the real and the
// simulated backend report failures through this type so the retry policy
// stays backend-agnostic.
type BackendError struct {
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable failure.
func NewTransient(err error) error {
	return &BackendError{Transient: true, Err: err}
}

// NewPermanent wraps err as a terminal failure.
func NewPermanent(err error) error {
	return &BackendError{Transient: false, Err: err}
}

// IsTransient reports whether err carries the transient classification.
// Unclassified errors are treated as transient: an unknown failure mode is
// assumed to be recoverable until the attempt budget runs out.
func IsTransient(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient
	}
	return true
}
