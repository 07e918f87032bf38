package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"standup_bot/internal/domain/delivery"
)

// Custom errors
var ErrJobNotFound = fmt.Errorf("delivery job not found")

type PostgresDeliveryRepository struct {
	db *sql.DB
}

func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

func (r *PostgresDeliveryRepository) Create(ctx context.Context, job *delivery.Job) error {
	query := `INSERT INTO delivery_jobs (run_id, destination, status, attempt_count, next_attempt_at)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		job.RunID, job.Destination, job.Status, job.AttemptCount, job.NextAttemptAt).
		Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating delivery job: %w", err)
	}
	return nil
}

func (r *PostgresDeliveryRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*delivery.Job, error) {
	query := `SELECT id, run_id, destination, status, attempt_count, next_attempt_at, last_error, completed_at, created_at, updated_at
              FROM delivery_jobs
              WHERE status IN ($1, $2) AND next_attempt_at <= $3
              ORDER BY created_at
              LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, delivery.JobPending, delivery.JobRetrying, now, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing due delivery jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *PostgresDeliveryRepository) Update(ctx context.Context, job *delivery.Job) error {
	query := `UPDATE delivery_jobs
              SET status = $1, attempt_count = $2, next_attempt_at = $3, last_error = $4, completed_at = $5, updated_at = NOW()
              WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		job.Status, job.AttemptCount, job.NextAttemptAt, job.LastError, job.CompletedAt, job.ID)
	if err != nil {
		return fmt.Errorf("error updating delivery job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking update result: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *PostgresDeliveryRepository) ListByRun(ctx context.Context, runID int64) ([]*delivery.Job, error) {
	query := `SELECT id, run_id, destination, status, attempt_count, next_attempt_at, last_error, completed_at, created_at, updated_at
              FROM delivery_jobs
              WHERE run_id = $1
              ORDER BY destination`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error listing delivery jobs for run: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *PostgresDeliveryRepository) ResetForResend(ctx context.Context, runID int64, destination *delivery.Destination, now time.Time) (int64, error) {
	query := `UPDATE delivery_jobs
              SET status = $1, attempt_count = 0, next_attempt_at = $2, last_error = NULL, completed_at = NULL, updated_at = NOW()
              WHERE run_id = $3 AND status IN ($4, $5)`
	args := []any{delivery.JobPending, now, runID, delivery.JobFailed, delivery.JobRetrying}

	if destination != nil {
		query += ` AND destination = $6`
		args = append(args, *destination)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error resetting delivery jobs: %w", err)
	}
	return result.RowsAffected()
}

func (r *PostgresDeliveryRepository) DeleteJobsForRunsBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM delivery_jobs
              WHERE run_id IN (
                SELECT id FROM standup_runs WHERE workspace_id = $1 AND created_at < $2
              )`

	result, err := r.db.ExecContext(ctx, query, workspaceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old delivery jobs: %w", err)
	}
	return result.RowsAffected()
}

func scanJobs(rows *sql.Rows) ([]*delivery.Job, error) {
	jobs := make([]*delivery.Job, 0)
	for rows.Next() {
		job := &delivery.Job{}
		if err := rows.Scan(
			&job.ID, &job.RunID, &job.Destination, &job.Status, &job.AttemptCount,
			&job.NextAttemptAt, &job.LastError, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning delivery job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery jobs: %w", err)
	}
	return jobs, nil
}
