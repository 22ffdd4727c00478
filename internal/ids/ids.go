// Package ids derives the deterministic record identifiers written to vector
// stores. Re-uploading a batch produces the same identifiers, so backends
// overwrite the previous records instead of duplicating them.
package ids

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidTuple = errors.New("invalid identifier tuple")

// namespace scopes every generated UUID to this pipeline.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vectorflow/upsert-record"))

// Validate reports whether the tuple can be turned into an identifier.
func Validate(jobID, batchID string, index int) error {
	if jobID == "" {
		return fmt.Errorf("%w: empty job id", ErrInvalidTuple)
	}
	if batchID == "" {
		return fmt.Errorf("%w: empty batch id", ErrInvalidTuple)
	}
	if index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidTuple, index)
	}
	return nil
}

// Generate returns a UUIDv5 string for (jobID, batchID, index).
// The components are length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func Generate(jobID, batchID string, index int) (string, error) {
	if err := Validate(jobID, batchID, index); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d:%s|%d:%s|%d", len(jobID), jobID, len(batchID), batchID, index)
	return uuid.NewSHA1(namespace, []byte(name)).String(), nil
}
