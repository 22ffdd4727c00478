package job

import "time"

type Status string

const (
	StatusInProgress         Status = "IN_PROGRESS"
	StatusCompleted          Status = "COMPLETED"
	StatusPartiallyCompleted Status = "PARTIALLY_COMPLETED"
	StatusFailed             Status = "FAILED"
)

type Job struct {
	ID               string    `json:"id"`
	SourceFilename   string    `json:"source_filename"`
	TotalBatches     int       `json:"total_batches"`
	BatchesSucceeded int       `json:"batches_succeeded"`
	BatchesProcessed int       `json:"batches_processed"`
	Status           Status    `json:"status"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DeriveStatus folds the batch counters into a job status. succeeded is
// clamped to total. PARTIALLY_COMPLETED and FAILED are only reachable once
// every batch has reported at least once.
func DeriveStatus(total, succeeded, processed int) Status {
	if succeeded > total {
		succeeded = total
	}
	if succeeded == total {
		return StatusCompleted
	}
	if processed < total {
		return StatusInProgress
	}
	if succeeded == 0 {
		return StatusFailed
	}
	return StatusPartiallyCompleted
}

// Outcome describes one batch report as seen by the tracker.
type Outcome struct {
	// Succeeded is set when the batch moved into SUCCEEDED on this report.
	Succeeded bool
	// FirstReport is set when the batch left PENDING on this report.
	FirstReport bool
}

// settled reports whether a derived status ends the job.
func settled(s Status) bool {
	return s != StatusInProgress
}
