package batch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vectorflow/apps/worker/features/batch"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Get(ctx context.Context, id string) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockRepo) IncrementRetry(ctx context.Context, id string) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockRepo) MarkSucceeded(ctx context.Context, id string) (batch.Status, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(batch.Status), args.Error(1)
}

func (m *MockRepo) UpdateStatus(ctx context.Context, id string, status batch.Status) (batch.Status, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(batch.Status), args.Error(1)
}

func TestService_MarkSucceeded(t *testing.T) {
	ctx := context.Background()

	t.Run("From Pending", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("MarkSucceeded", ctx, "b1").Return(batch.StatusPending, nil)

		tr, err := batch.NewService(repo).MarkSucceeded(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, batch.Transition{Previous: batch.StatusPending, Current: batch.StatusSucceeded}, tr)
		assert.True(t, tr.Changed())
	})

	t.Run("Already Succeeded", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("MarkSucceeded", ctx, "b1").Return(batch.Status(""), batch.ErrNotFound)
		repo.On("Get", ctx, "b1").Return(&batch.Batch{ID: "b1", Status: batch.StatusSucceeded}, nil)

		tr, err := batch.NewService(repo).MarkSucceeded(ctx, "b1")
		require.NoError(t, err)
		assert.False(t, tr.Changed())
		assert.Equal(t, batch.StatusSucceeded, tr.Current)
	})

	t.Run("Missing Batch", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("MarkSucceeded", ctx, "b9").Return(batch.Status(""), batch.ErrNotFound)
		repo.On("Get", ctx, "b9").Return(nil, batch.ErrNotFound)

		_, err := batch.NewService(repo).MarkSucceeded(ctx, "b9")
		assert.ErrorIs(t, err, batch.ErrNotFound)
	})

	t.Run("Repo Error", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("MarkSucceeded", ctx, "b1").Return(batch.Status(""), errors.New("db down"))

		_, err := batch.NewService(repo).MarkSucceeded(ctx, "b1")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestService_MarkStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending To Failed", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("UpdateStatus", ctx, "b1", batch.StatusFailed).Return(batch.StatusPending, nil)

		tr, err := batch.NewService(repo).MarkStatus(ctx, "b1", batch.StatusFailed)
		require.NoError(t, err)
		assert.Equal(t, batch.StatusPending, tr.Previous)
		assert.Equal(t, batch.StatusFailed, tr.Current)
	})

	t.Run("Failed Again", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("UpdateStatus", ctx, "b1", batch.StatusFailed).Return(batch.StatusFailed, nil)

		tr, err := batch.NewService(repo).MarkStatus(ctx, "b1", batch.StatusFailed)
		require.NoError(t, err)
		assert.False(t, tr.Changed())
	})

	t.Run("Succeeded Is Terminal", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("UpdateStatus", ctx, "b1", batch.StatusPending).Return(batch.Status(""), batch.ErrNotFound)
		repo.On("Get", ctx, "b1").Return(&batch.Batch{ID: "b1", Status: batch.StatusSucceeded}, nil)

		_, err := batch.NewService(repo).MarkStatus(ctx, "b1", batch.StatusPending)
		assert.ErrorIs(t, err, batch.ErrInvalidTransition)
	})

	t.Run("Delegates Success", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("MarkSucceeded", ctx, "b1").Return(batch.StatusFailed, nil)

		tr, err := batch.NewService(repo).MarkStatus(ctx, "b1", batch.StatusSucceeded)
		require.NoError(t, err)
		assert.Equal(t, batch.StatusSucceeded, tr.Current)
	})

	t.Run("Unknown Status", func(t *testing.T) {
		_, err := batch.NewService(new(MockRepo)).MarkStatus(ctx, "b1", batch.Status("DONE"))
		assert.ErrorIs(t, err, batch.ErrInvalidTransition)
	})
}

func TestService_IncrementRetry(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("IncrementRetry", ctx, "b1").Return(&batch.Batch{ID: "b1", Status: batch.StatusFailed, Retries: 1}, nil)

	b, err := batch.NewService(repo).IncrementRetry(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Retries)
}
