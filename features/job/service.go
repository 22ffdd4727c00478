package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrMissingJobID = errors.New("job id is required")

// Service aggregates batch outcomes into job status.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	if id == "" {
		return nil, ErrMissingJobID
	}
	return s.repo.Get(ctx, id)
}

// ApplyBatchOutcome recounts the job's batches and persists the derived
// status. When another report moved the counters in the meantime the status
// write is skipped; that report derives from newer counters. A FAILED job only
// leaves FAILED for a settled status.
func (s *Service) ApplyBatchOutcome(ctx context.Context, jobID string, outcome Outcome) (*Job, error) {
	if jobID == "" {
		slog.ErrorContext(ctx, "cannot update job status without a job id")
		return nil, ErrMissingJobID
	}

	j, err := s.repo.RecountBatches(ctx, jobID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update job counters", "job_id", jobID, "error", err)
		return nil, fmt.Errorf("recount batches: %w", err)
	}
	slog.DebugContext(ctx, "batch outcome applied", "job_id", jobID, "succeeded", outcome.Succeeded,
		"first_report", outcome.FirstReport, "batches_succeeded", j.BatchesSucceeded, "batches_processed", j.BatchesProcessed)

	status := DeriveStatus(j.TotalBatches, j.BatchesSucceeded, j.BatchesProcessed)
	if j.Status == StatusFailed && !settled(status) {
		slog.WarnContext(ctx, "job stays failed until every batch has reported", "job_id", jobID,
			"succeeded", j.BatchesSucceeded, "processed", j.BatchesProcessed, "total", j.TotalBatches)
		return j, nil
	}
	if status != j.Status {
		updated, err := s.repo.UpdateStatusIfCurrent(ctx, jobID, status, j.BatchesSucceeded, j.BatchesProcessed)
		if err != nil {
			slog.ErrorContext(ctx, "failed to update job status", "job_id", jobID, "status", status, "error", err)
			return nil, fmt.Errorf("update job status: %w", err)
		}
		if !updated {
			slog.DebugContext(ctx, "job counters moved, skipping stale status", "job_id", jobID, "status", status)
			return j, nil
		}
		j.Status = status
	}

	switch j.Status {
	case StatusCompleted:
		slog.InfoContext(ctx, "job completed", "job_id", jobID, "source", j.SourceFilename, "batches", j.TotalBatches)
	case StatusPartiallyCompleted:
		slog.WarnContext(ctx, "job partially completed", "job_id", jobID, "source", j.SourceFilename,
			"succeeded", j.BatchesSucceeded, "total", j.TotalBatches)
	case StatusFailed:
		slog.ErrorContext(ctx, "job failed", "job_id", jobID, "source", j.SourceFilename, "total", j.TotalBatches)
	}
	return j, nil
}

func (s *Service) ForceFailed(ctx context.Context, jobID string) error {
	if jobID == "" {
		slog.ErrorContext(ctx, "cannot fail job without a job id")
		return ErrMissingJobID
	}
	if err := s.repo.UpdateStatus(ctx, jobID, StatusFailed); err != nil {
		slog.ErrorContext(ctx, "failed to mark job as failed", "job_id", jobID, "error", err)
		return err
	}
	slog.WarnContext(ctx, "job marked as failed", "job_id", jobID)
	return nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
