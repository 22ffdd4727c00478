package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/vector"
)

// UploadOrchestrator uploads one batch of chunks and records the outcome on
// the batch and its job.
type UploadOrchestrator struct {
	batches    BatchTracker
	jobs       JobAggregator
	dispatcher Dispatcher
}

func NewUploadOrchestrator(b BatchTracker, j JobAggregator, d Dispatcher) *UploadOrchestrator {
	return &UploadOrchestrator{batches: b, jobs: j, dispatcher: d}
}

// UploadBatch returns an error only when the batch or job could not be read
// before the upload. Upload failures are recorded on the batch, not returned.
func (o *UploadOrchestrator) UploadBatch(ctx context.Context, batchID string, chunks []vector.Chunk) error {
	b, err := o.batches.GetBatch(ctx, batchID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load batch", "batch_id", batchID, "error", err)
		return fmt.Errorf("get batch %s: %w", batchID, err)
	}

	switch b.Status {
	case batch.StatusSucceeded:
		slog.InfoContext(ctx, "batch already uploaded, skipping", "batch_id", batchID, "job_id", b.JobID)
		return o.resync(ctx, b)
	case batch.StatusFailed:
		b, err = o.batches.IncrementRetry(ctx, batchID)
		if err != nil {
			return fmt.Errorf("increment retry for batch %s: %w", batchID, err)
		}
		slog.InfoContext(ctx, "retrying failed batch", "batch_id", batchID, "retries", b.Retries)
	}

	j, err := o.jobs.Get(ctx, b.JobID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load job for batch", "batch_id", batchID, "job_id", b.JobID, "error", err)
		return fmt.Errorf("get job for batch %s: %w", batchID, err)
	}

	target := vector.Target{JobID: b.JobID, BatchID: b.ID, SourceFilename: j.SourceFilename}
	count, err := o.dispatcher.Dispatch(ctx, b.Metadata, chunks, target)
	if err != nil {
		slog.ErrorContext(ctx, "batch upload failed", "batch_id", batchID, "backend", b.Metadata.Type,
			"reason", vector.ReasonOf(err), "error", err)
		o.settle(ctx, b, false)
		return nil
	}

	slog.InfoContext(ctx, "batch uploaded", "batch_id", batchID, "backend", b.Metadata.Type, "vectors", count)
	o.settle(ctx, b, true)
	return nil
}

// settle writes the batch outcome and folds it into the job. Any failure on
// this path forces the job to FAILED.
func (o *UploadOrchestrator) settle(ctx context.Context, b *batch.Batch, succeeded bool) {
	var (
		tr  batch.Transition
		err error
	)
	if succeeded {
		tr, err = o.batches.MarkSucceeded(ctx, b.ID)
	} else {
		tr, err = o.batches.MarkStatus(ctx, b.ID, batch.StatusFailed)
	}
	if errors.Is(err, batch.ErrInvalidTransition) {
		slog.WarnContext(ctx, "batch succeeded on another delivery, keeping it", "batch_id", b.ID)
		return
	}
	if err != nil {
		o.failJob(ctx, b, err)
		return
	}

	outcome := job.Outcome{
		Succeeded:   tr.Current == batch.StatusSucceeded && tr.Changed(),
		FirstReport: tr.Previous == batch.StatusPending,
	}
	if _, err := o.jobs.ApplyBatchOutcome(ctx, b.JobID, outcome); err != nil {
		o.failJob(ctx, b, err)
	}
}

// resync re-applies an already recorded batch to a FAILED job, so a report
// whose job update was lost is counted on redelivery.
func (o *UploadOrchestrator) resync(ctx context.Context, b *batch.Batch) error {
	j, err := o.jobs.Get(ctx, b.JobID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load job for batch", "batch_id", b.ID, "job_id", b.JobID, "error", err)
		return fmt.Errorf("get job for batch %s: %w", b.ID, err)
	}
	if j.Status != job.StatusFailed {
		return nil
	}
	if _, err := o.jobs.ApplyBatchOutcome(ctx, b.JobID, job.Outcome{}); err != nil {
		slog.ErrorContext(ctx, "failed to resync failed job", "batch_id", b.ID, "job_id", b.JobID, "error", err)
	}
	return nil
}

func (o *UploadOrchestrator) failJob(ctx context.Context, b *batch.Batch, cause error) {
	slog.ErrorContext(ctx, "status update failed, marking job as failed", "batch_id", b.ID, "job_id", b.JobID, "error", cause)
	if err := o.jobs.ForceFailed(ctx, b.JobID); err != nil {
		slog.ErrorContext(ctx, "failed to force job status", "job_id", b.JobID, "error", err)
	}
}
