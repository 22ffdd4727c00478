package batch

import (
	"context"
	"database/sql"
	"errors"

	"vectorflow/apps/worker/internal/vector"
)

var ErrNotFound = errors.New("batch not found")

type Repository interface {
	Get(ctx context.Context, id string) (*Batch, error)
	IncrementRetry(ctx context.Context, id string) (*Batch, error)
	MarkSucceeded(ctx context.Context, id string) (Status, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Status, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const batchColumns = `id, job_id, vector_db_type, environment, index_name, status, retries, updated_at`

// scanBatch normalizes known backend names. Unknown ones are kept as stored
// so the dispatcher reports them as unsupported.
func scanBatch(row *sql.Row) (*Batch, error) {
	b := &Batch{}
	var backend string
	err := row.Scan(&b.ID, &b.JobID, &backend, &b.Metadata.Environment, &b.Metadata.IndexName, &b.Status, &b.Retries, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Metadata.Type = vector.BackendType(backend)
	if t, err := vector.ParseBackendType(backend); err == nil {
		b.Metadata.Type = t
	}
	return b, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	return scanBatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) IncrementRetry(ctx context.Context, id string) (*Batch, error) {
	query := `UPDATE batches SET retries = retries + 1, updated_at = NOW() WHERE id = $1 RETURNING ` + batchColumns
	return scanBatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) MarkSucceeded(ctx context.Context, id string) (Status, error) {
	return r.UpdateStatus(ctx, id, StatusSucceeded)
}

// UpdateStatus moves a batch that has not succeeded yet and returns the status
// it held before the write. ErrNotFound covers both a missing row and a batch
// that is already SUCCEEDED.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status) (Status, error) {
	query := `UPDATE batches b SET status = $2, updated_at = NOW()
		FROM (SELECT id, status FROM batches WHERE id = $1 FOR UPDATE) prev
		WHERE b.id = prev.id AND prev.status <> 'SUCCEEDED'
		RETURNING prev.status`
	var previous Status
	err := r.db.QueryRowContext(ctx, query, id, status).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return previous, nil
}
