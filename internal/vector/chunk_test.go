package vector_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorflow/apps/worker/internal/vector"
)

func makeRecords(n int) []vector.Record {
	records := make([]vector.Record, n)
	for i := range records {
		records[i] = vector.Record{ID: fmt.Sprintf("r%d", i), Vector: []float32{float32(i)}}
	}
	return records
}

func TestPartition_ChunkCountAndOrder(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for size := 1; size <= 5; size++ {
			records := makeRecords(n)
			chunks := vector.Partition(records, size)

			expected := (n + size - 1) / size
			assert.Len(t, chunks, expected, "n=%d size=%d", n, size)

			var flat []vector.Record
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c), size)
				flat = append(flat, c...)
			}
			if n == 0 {
				assert.Empty(t, flat)
			} else {
				assert.Equal(t, records, flat)
			}
		}
	}
}

func TestUpsertSequential_FiveRecordsSizeTwo(t *testing.T) {
	var sizes []int
	total, err := vector.UpsertSequential(context.Background(), vector.Pinecone, makeRecords(5), 2,
		func(ctx context.Context, i int, chunk []vector.Record) (int, error) {
			sizes = append(sizes, len(chunk))
			return len(chunk), nil
		})

	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestUpsertSequential_StopsAtFailedChunk(t *testing.T) {
	boom := errors.New("boom")
	var attempted []int

	total, err := vector.UpsertSequential(context.Background(), vector.Qdrant, makeRecords(10), 2,
		func(ctx context.Context, i int, chunk []vector.Record) (int, error) {
			attempted = append(attempted, i)
			if i == 2 {
				return 0, boom
			}
			return len(chunk), nil
		})

	assert.Equal(t, 0, total)
	assert.Equal(t, []int{0, 1, 2}, attempted)

	var ue *vector.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, vector.ReasonWriteFailed, ue.Reason)
	assert.Equal(t, 2, ue.Chunk)
	assert.Equal(t, vector.Qdrant, ue.Backend)
	assert.ErrorIs(t, err, boom)
}

func TestUpsertSequential_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := vector.UpsertSequential(ctx, vector.Pinecone, makeRecords(3), 2,
		func(ctx context.Context, i int, chunk []vector.Record) (int, error) {
			called = true
			return len(chunk), nil
		})

	assert.False(t, called)
	assert.ErrorIs(t, err, context.Canceled)
}
