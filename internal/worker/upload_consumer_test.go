package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/middleware"
	"vectorflow/apps/worker/internal/vector"
	"vectorflow/apps/worker/internal/worker"
)

func uploadMessage(t *testing.T, p worker.UploadPayload) *nsq.Message {
	body, err := json.Marshal(p)
	assert.NoError(t, err)
	return &nsq.Message{Body: body}
}

func TestUploadConsumer_HandleMessage(t *testing.T) {
	u := new(MockUploader)
	consumer := worker.NewUploadConsumer(u)

	chunks := []vector.Chunk{{Text: "hello", Vector: []float32{0.5, 0.25}}}
	u.On("UploadBatch", mock.MatchedBy(func(ctx context.Context) bool {
		return middleware.GetCorrelationID(ctx) == "corr-1"
	}), "b1", chunks).Return(nil)

	err := consumer.HandleMessage(uploadMessage(t, worker.UploadPayload{BatchID: "b1", Chunks: chunks, CorrelationID: "corr-1"}))
	assert.NoError(t, err)
	u.AssertExpectations(t)
}

func TestUploadConsumer_PoisonPill(t *testing.T) {
	u := new(MockUploader)
	consumer := worker.NewUploadConsumer(u)

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte("invalid json")}))
	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: nil}))
	assert.NoError(t, consumer.HandleMessage(uploadMessage(t, worker.UploadPayload{})))
	u.AssertNotCalled(t, "UploadBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadConsumer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		requeue bool
	}{
		{"Unknown Batch", batch.ErrNotFound, false},
		{"Unknown Job", job.ErrNotFound, false},
		{"Missing Job ID", job.ErrMissingJobID, false},
		{"Transient", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := new(MockUploader)
			u.On("UploadBatch", mock.Anything, "b1", mock.Anything).Return(tt.err)

			err := worker.NewUploadConsumer(u).HandleMessage(uploadMessage(t, worker.UploadPayload{BatchID: "b1"}))
			if tt.requeue {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
