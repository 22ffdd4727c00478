package batch

import (
	"time"

	"vectorflow/apps/worker/internal/vector"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

type Batch struct {
	ID        string          `json:"id"`
	JobID     string          `json:"job_id"`
	Metadata  vector.Metadata `json:"vector_db_metadata"`
	Status    Status          `json:"status"`
	Retries   int             `json:"retries"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transition is the result of a status write.
type Transition struct {
	Previous Status
	Current  Status
}

// Changed reports whether the write moved the batch into a new status.
func (t Transition) Changed() bool {
	return t.Previous != t.Current
}
