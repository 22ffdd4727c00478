package vector

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonUnsupportedBackend Reason = "unsupported_backend"
	ReasonUnavailable        Reason = "unavailable"
	ReasonMissingIndex       Reason = "missing_index"
	ReasonWriteFailed        Reason = "write_failed"
	ReasonInvalidInput       Reason = "invalid_input"
)

// UploadError is the failure signal returned across the Backend and Dispatcher boundary.
type UploadError struct {
	Backend BackendType
	Reason  Reason
	// Chunk is the index of the failed chunk for write failures, -1 otherwise.
	Chunk int
	Err   error
}

func (e *UploadError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("%s upload %s at chunk %d: %v", e.Backend, e.Reason, e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s upload %s: %v", e.Backend, e.Reason, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func NewUploadError(backend BackendType, reason Reason, err error) *UploadError {
	return &UploadError{Backend: backend, Reason: reason, Chunk: -1, Err: err}
}

// ReasonOf extracts the failure reason, or "" when err is not an *UploadError.
func ReasonOf(err error) Reason {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ""
}
