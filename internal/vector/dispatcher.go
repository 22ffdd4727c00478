package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Observer receives the outcome of every dispatched upload.
type Observer interface {
	ObserveUpload(backend BackendType, vectors int, reason Reason, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveUpload(BackendType, int, Reason, time.Duration) {}

// Dispatcher routes a batch to the Backend registered for its metadata type.
type Dispatcher struct {
	backends map[BackendType]Backend
	observer Observer
}

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

func NewDispatcher(backends []Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backends: make(map[BackendType]Backend, len(backends)),
		observer: nopObserver{},
	}
	for _, b := range backends {
		d.Register(b)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds or replaces the backend for its type.
func (d *Dispatcher) Register(b Backend) {
	d.backends[b.Type()] = b
}

// Dispatch builds records for chunks and uploads them through the matching backend.
// It never panics on bad input; every failure is an *UploadError.
func (d *Dispatcher) Dispatch(ctx context.Context, meta Metadata, chunks []Chunk, target Target) (int, error) {
	start := time.Now()

	backend, ok := d.backends[meta.Type]
	if !ok {
		slog.ErrorContext(ctx, "unsupported vector DB type", "vector_db_type", meta.Type, "batch_id", target.BatchID)
		err := NewUploadError(meta.Type, ReasonUnsupportedBackend, fmt.Errorf("no backend registered for %q", meta.Type))
		d.observer.ObserveUpload(meta.Type, 0, err.Reason, time.Since(start))
		return 0, err
	}

	records, err := BuildRecords(chunks, target)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build upsert records", "batch_id", target.BatchID, "error", err)
		uerr := NewUploadError(meta.Type, ReasonInvalidInput, err)
		d.observer.ObserveUpload(meta.Type, 0, uerr.Reason, time.Since(start))
		return 0, uerr
	}

	n, err := backend.Upload(ctx, records, meta)
	if err != nil {
		reason := ReasonOf(err)
		if reason == "" {
			reason = ReasonWriteFailed
			err = NewUploadError(meta.Type, reason, err)
		}
		d.observer.ObserveUpload(meta.Type, 0, reason, time.Since(start))
		return 0, err
	}
	d.observer.ObserveUpload(meta.Type, n, "", time.Since(start))
	return n, nil
}
