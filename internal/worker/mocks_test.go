package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/vector"
)

// Mocks

type MockTracker struct{ mock.Mock }

func (m *MockTracker) GetBatch(ctx context.Context, id string) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockTracker) IncrementRetry(ctx context.Context, id string) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockTracker) MarkSucceeded(ctx context.Context, id string) (batch.Transition, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(batch.Transition), args.Error(1)
}

func (m *MockTracker) MarkStatus(ctx context.Context, id string, status batch.Status) (batch.Transition, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(batch.Transition), args.Error(1)
}

type MockAggregator struct{ mock.Mock }

func (m *MockAggregator) Get(ctx context.Context, id string) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockAggregator) ApplyBatchOutcome(ctx context.Context, jobID string, outcome job.Outcome) (*job.Job, error) {
	args := m.Called(ctx, jobID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockAggregator) ForceFailed(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

type MockDispatcher struct{ mock.Mock }

func (m *MockDispatcher) Dispatch(ctx context.Context, meta vector.Metadata, chunks []vector.Chunk, target vector.Target) (int, error) {
	args := m.Called(ctx, meta, chunks, target)
	return args.Int(0), args.Error(1)
}

type MockUploader struct{ mock.Mock }

func (m *MockUploader) UploadBatch(ctx context.Context, batchID string, chunks []vector.Chunk) error {
	args := m.Called(ctx, batchID, chunks)
	return args.Error(0)
}
