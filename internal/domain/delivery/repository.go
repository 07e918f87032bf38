package delivery

import (
	"context"
	"time"
)

// Repository defines persistence operations for delivery jobs.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	// ListDue returns up to limit jobs in PENDING or RETRYING whose next
	// attempt is due, oldest-created first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	Update(ctx context.Context, job *Job) error
	ListByRun(ctx context.Context, runID int64) ([]*Job, error)
	// ResetForResend moves FAILED/RETRYING jobs of the run (optionally
	// filtered to one destination) back to PENDING with attempt count 0 and
	// the error cleared, returning the number touched.
	ResetForResend(ctx context.Context, runID int64, destination *Destination, now time.Time) (int64, error)
	// DeleteJobsForRunsBefore removes jobs belonging to runs created before
	// the cutoff and returns the number deleted.
	DeleteJobsForRunsBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error)
}
