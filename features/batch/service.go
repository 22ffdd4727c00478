package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrInvalidTransition = errors.New("invalid batch status transition")

// Service tracks the lifecycle of a batch. SUCCEEDED is terminal.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBatch(ctx context.Context, id string) (*Batch, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) IncrementRetry(ctx context.Context, id string) (*Batch, error) {
	b, err := s.repo.IncrementRetry(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to increment batch retries", "batch_id", id, "error", err)
		return nil, err
	}
	return b, nil
}

// MarkSucceeded is idempotent: a batch that already succeeded reports an
// unchanged transition.
func (s *Service) MarkSucceeded(ctx context.Context, id string) (Transition, error) {
	previous, err := s.repo.MarkSucceeded(ctx, id)
	if err == nil {
		return Transition{Previous: previous, Current: StatusSucceeded}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.ErrorContext(ctx, "failed to mark batch as succeeded", "batch_id", id, "error", err)
		return Transition{}, err
	}

	current, err := s.resolveNoop(ctx, id)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Previous: current, Current: current}, nil
}

func (s *Service) MarkStatus(ctx context.Context, id string, status Status) (Transition, error) {
	if !status.Valid() {
		return Transition{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if status == StatusSucceeded {
		return s.MarkSucceeded(ctx, id)
	}

	previous, err := s.repo.UpdateStatus(ctx, id, status)
	if err == nil {
		return Transition{Previous: previous, Current: status}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.ErrorContext(ctx, "failed to update batch status", "batch_id", id, "status", status, "error", err)
		return Transition{}, err
	}

	if _, err := s.resolveNoop(ctx, id); err != nil {
		return Transition{}, err
	}
	slog.WarnContext(ctx, "refusing to move a succeeded batch", "batch_id", id, "status", status)
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, StatusSucceeded, status)
}

// resolveNoop tells a missing batch apart from one the guarded write skipped
// because it already succeeded.
func (s *Service) resolveNoop(ctx context.Context, id string) (Status, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read batch after skipped update", "batch_id", id, "error", err)
		return "", err
	}
	return b.Status, nil
}
