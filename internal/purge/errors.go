package purge

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound halts the run before any read or write.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrIndexCreationFailed is recorded as a warning; the run continues unindexed.
	ErrIndexCreationFailed = errors.New("index creation failed")

	// ErrSamplingFailed is recorded as a warning; the report omits examples.
	ErrSamplingFailed = errors.New("sampling failed")

	// ErrVerificationFailed is recorded as a warning when the post-delete
	// count cannot be taken. The delete itself has already happened.
	ErrVerificationFailed = errors.New("post-delete verification failed")

	// ErrAborted means the confirmation window was interrupted. Nothing was deleted.
	ErrAborted = errors.New("aborted before deletion")
)

// PreconditionError is a fatal structural check failure.
type PreconditionError struct {
	Check      string
	Message    string
	Collection string
	Err        error
}

func (e *PreconditionError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s (collection: %s)", e.Check, e.Message, e.Collection)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
