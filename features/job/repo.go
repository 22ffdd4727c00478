package job

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("job not found")

type Repository interface {
	Get(ctx context.Context, id string) (*Job, error)
	RecountBatches(ctx context.Context, id string) (*Job, error)
	UpdateStatusIfCurrent(ctx context.Context, id string, status Status, succeeded, processed int) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const jobColumns = `id, source_filename, total_batches, batches_succeeded, batches_processed, status, updated_at`

func scanJob(row *sql.Row) (*Job, error) {
	j := &Job{}
	err := row.Scan(&j.ID, &j.SourceFilename, &j.TotalBatches, &j.BatchesSucceeded, &j.BatchesProcessed, &j.Status, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(r.db.QueryRowContext(ctx, query, id))
}

// RecountBatches sets the counters from the job's batch rows. The job row is
// locked first so the counts see every batch status committed before it, and a
// report that lost its own write is picked up by the next one.
func (r *PostgresRepo) RecountBatches(ctx context.Context, id string) (*Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	query := `UPDATE jobs SET
		batches_succeeded = LEAST(total_batches, (SELECT COUNT(*) FROM batches WHERE job_id = $1 AND status = 'SUCCEEDED')),
		batches_processed = LEAST(total_batches, (SELECT COUNT(*) FROM batches WHERE job_id = $1 AND status <> 'PENDING')),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + jobColumns
	j, err := scanJob(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateStatusIfCurrent writes status only while the counters still match the
// snapshot it was derived from. It reports whether the row was updated.
func (r *PostgresRepo) UpdateStatusIfCurrent(ctx context.Context, id string, status Status, succeeded, processed int) (bool, error) {
	query := `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1 AND batches_succeeded = $3 AND batches_processed = $4`
	res, err := r.db.ExecContext(ctx, query, id, status, succeeded, processed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
