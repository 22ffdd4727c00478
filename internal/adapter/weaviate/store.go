package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-openapi/strfmt"
	"github.com/panjf2000/ants/v2"
	"github.com/weaviate/weaviate/entities/models"

	"vectorflow/apps/worker/internal/vector"
)

type Store struct {
	settings vector.Settings
	workers  int
	dial     Dialer
}

// NewStore uploads through a pool of the given number of goroutines.
func NewStore(settings vector.Settings, workers int, dial Dialer) *Store {
	if workers < 1 {
		workers = 1
	}
	return &Store{settings: settings, workers: workers, dial: dial}
}

func (s *Store) Type() vector.BackendType {
	return vector.Weaviate
}

func (s *Store) Upload(ctx context.Context, records []vector.Record, meta vector.Metadata) (int, error) {
	client, err := s.dial(meta)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create weaviate client", "environment", meta.Environment, "error", err)
		return 0, vector.NewUploadError(vector.Weaviate, vector.ReasonUnavailable, err)
	}

	classes, err := client.ListClasses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read weaviate schema", "environment", meta.Environment, "error", err)
		return 0, vector.NewUploadError(vector.Weaviate, vector.ReasonUnavailable, err)
	}
	if !slices.Contains(classes, meta.IndexName) {
		slog.ErrorContext(ctx, "class does not exist", "class", meta.IndexName, "cluster", meta.Environment)
		return 0, vector.NewUploadError(vector.Weaviate, vector.ReasonMissingIndex,
			fmt.Errorf("class %s does not exist at %s", meta.IndexName, meta.Environment))
	}

	slog.InfoContext(ctx, "starting weaviate upsert", "vectors", len(records), "class", meta.IndexName)

	uploaded, err := s.submit(ctx, client, meta.IndexName, vector.Partition(records, s.settings.BatchSize))
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "successfully uploaded vectors to weaviate", "vectors", uploaded)
	return uploaded, nil
}

// submit hands chunks to the pool in index order. Once a chunk fails or ctx is
// done, chunks that have not started yet are skipped.
func (s *Store) submit(ctx context.Context, client Client, class string, chunks [][]vector.Record) (int, error) {
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return 0, vector.NewUploadError(vector.Weaviate, vector.ReasonUnavailable, err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		uploaded atomic.Int64
		failed   atomic.Bool
		mu       sync.Mutex
		firstErr *vector.UploadError
	)

	fail := func(i int, err error) {
		failed.Store(true)
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil || i < firstErr.Chunk {
			firstErr = &vector.UploadError{Backend: vector.Weaviate, Reason: vector.ReasonWriteFailed, Chunk: i, Err: err}
		}
	}

	submitted := 0
	for i, chunk := range chunks {
		if failed.Load() || ctx.Err() != nil {
			break
		}
		submitted++
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if failed.Load() {
				return
			}
			n, err := writeChunk(ctx, client, class, chunk)
			if err != nil {
				slog.ErrorContext(ctx, "error writing embeddings to weaviate", "chunk", i, "error", err)
				fail(i, err)
				return
			}
			uploaded.Add(int64(n))
		})
		if err != nil {
			wg.Done()
			fail(i, err)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}
	if submitted < len(chunks) {
		return 0, &vector.UploadError{Backend: vector.Weaviate, Reason: vector.ReasonWriteFailed, Chunk: submitted, Err: ctx.Err()}
	}
	return int(uploaded.Load()), nil
}

// writeChunk returns how many objects Weaviate accepted. Any per-object error fails the chunk.
func writeChunk(ctx context.Context, client Client, class string, chunk []vector.Record) (int, error) {
	objects := make([]*models.Object, 0, len(chunk))
	for _, r := range chunk {
		props := make(map[string]interface{}, len(r.Payload))
		for k, v := range r.Payload {
			props[k] = v
		}
		objects = append(objects, &models.Object{
			Class:      class,
			ID:         strfmt.UUID(r.ID),
			Properties: props,
			Vector:     models.C11yVector(r.Vector),
		})
	}

	resp, err := client.BatchObjects(ctx, objects)
	if err != nil {
		return 0, err
	}

	accepted := 0
	var msgs []string
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			for _, e := range obj.Result.Errors.Error {
				if e != nil {
					msgs = append(msgs, fmt.Sprintf("%s: %s", obj.ID, e.Message))
				}
			}
			continue
		}
		accepted++
	}
	if len(msgs) > 0 {
		return accepted, fmt.Errorf("%d objects rejected: %s", len(msgs), strings.Join(msgs, "; "))
	}
	return accepted, nil
}

