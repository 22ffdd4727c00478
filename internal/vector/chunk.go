package vector

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
)

// Partition splits records into consecutive chunks of at most size records.
func Partition(records []Record, size int) [][]Record {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(records)
	}
	return lo.Chunk(records, size)
}

// UpsertFunc writes one chunk and returns the count the store confirmed.
type UpsertFunc func(ctx context.Context, index int, chunk []Record) (int, error)

// UpsertSequential writes the chunks in order and stops at the first failure.
// Chunks after the failed one are never attempted.
func UpsertSequential(ctx context.Context, backend BackendType, records []Record, size int, upsert UpsertFunc) (int, error) {
	total := 0
	for i, chunk := range Partition(records, size) {
		if err := ctx.Err(); err != nil {
			return 0, &UploadError{Backend: backend, Reason: ReasonWriteFailed, Chunk: i, Err: err}
		}
		n, err := upsert(ctx, i, chunk)
		if err != nil {
			slog.ErrorContext(ctx, "error writing embeddings", "backend", backend, "chunk", i, "error", err)
			return 0, &UploadError{Backend: backend, Reason: ReasonWriteFailed, Chunk: i, Err: err}
		}
		total += n
	}
	return total, nil
}
