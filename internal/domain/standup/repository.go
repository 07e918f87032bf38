package standup

import (
	"context"
	"time"
)

// Repository defines persistence operations for runs and responses. The
// storage layer enforces uniqueness on (workspace, run date) and
// (run, member).
type Repository interface {
	// UpsertRun creates the run for (workspace, date) or returns the existing
	// row, filling in the ID either way. It never reopens a closed run.
	UpsertRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, workspaceID string, runDate time.Time) (*Run, error)
	GetRunByID(ctx context.Context, id int64) (*Run, error)
	// CloseRun marks the run CLOSED with the given timestamp.
	CloseRun(ctx context.Context, runID int64, closedAt time.Time) error
	ListClosedRunsBetween(ctx context.Context, workspaceID string, from, to time.Time) ([]*Run, error)
	// DeleteRunsBefore removes runs created before the cutoff (responses
	// cascade) and returns the number deleted.
	DeleteRunsBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error)

	// UpsertResponse inserts or updates the (run, member) response row.
	UpsertResponse(ctx context.Context, resp *Response) error
	GetResponse(ctx context.Context, runID, memberID int64) (*Response, error)
	// FindActiveResponseByUser resolves the most recent PENDING or
	// IN_PROGRESS response belonging to an OPEN run for the given platform
	// user, used to rehydrate sessions after a restart.
	FindActiveResponseByUser(ctx context.Context, userID string) (*Response, error)
	// SaveSession persists the session blob and moves the response to
	// IN_PROGRESS. Called after every flow mutation.
	SaveSession(ctx context.Context, runID, memberID int64, state SessionState) error
	// SubmitResponse writes the final answers with status SUBMITTED.
	SubmitResponse(ctx context.Context, runID, memberID int64, answers Answers, submittedAt time.Time) error
	// MarkMissing bulk-transitions PENDING/IN_PROGRESS responses of the run
	// to MISSING and returns the number touched.
	MarkMissing(ctx context.Context, runID int64) (int64, error)
	// ListResponses returns all responses of a run with roster members
	// joined, ordered by member display name.
	ListResponses(ctx context.Context, runID int64) ([]*Response, error)
	ListResponsesByStatus(ctx context.Context, runID int64, statuses ...ResponseStatus) ([]*Response, error)
}
