package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/middleware"
	"vectorflow/apps/worker/internal/vector"
)

type BatchUploader interface {
	UploadBatch(ctx context.Context, batchID string, chunks []vector.Chunk) error
}

type UploadConsumer struct {
	uploader BatchUploader
}

func NewUploadConsumer(u BatchUploader) *UploadConsumer {
	return &UploadConsumer{uploader: u}
}

func (h *UploadConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload UploadPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if payload.BatchID == "" {
		slog.ErrorContext(ctx, "missing batch id, dropping")
		return nil
	}

	err := h.uploader.UploadBatch(ctx, payload.BatchID, payload.Chunks)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, batch.ErrNotFound), errors.Is(err, job.ErrNotFound), errors.Is(err, job.ErrMissingJobID):
		slog.ErrorContext(ctx, "batch cannot be resolved, dropping", "batch_id", payload.BatchID, "error", err)
		return nil
	default:
		slog.WarnContext(ctx, "batch upload will be requeued", "batch_id", payload.BatchID, "attempts", m.Attempts, "error", err)
		return err
	}
}
