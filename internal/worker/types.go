package worker

import (
	"context"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/vector"
)

type BatchTracker interface {
	GetBatch(ctx context.Context, id string) (*batch.Batch, error)
	IncrementRetry(ctx context.Context, id string) (*batch.Batch, error)
	MarkSucceeded(ctx context.Context, id string) (batch.Transition, error)
	MarkStatus(ctx context.Context, id string, status batch.Status) (batch.Transition, error)
}

type JobAggregator interface {
	Get(ctx context.Context, id string) (*job.Job, error)
	ApplyBatchOutcome(ctx context.Context, jobID string, outcome job.Outcome) (*job.Job, error)
	ForceFailed(ctx context.Context, jobID string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, meta vector.Metadata, chunks []vector.Chunk, target vector.Target) (int, error)
}

// UploadPayload is the body of a vector.upload message.
type UploadPayload struct {
	BatchID       string         `json:"batch_id"`
	Chunks        []vector.Chunk `json:"chunks"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}
