package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
)

// Custom errors
var ErrRunNotFound = fmt.Errorf("standup run not found")
var ErrResponseNotFound = fmt.Errorf("standup response not found")

type PostgresStandupRepository struct {
	db *sql.DB
}

func NewPostgresStandupRepository(db *sql.DB) *PostgresStandupRepository {
	return &PostgresStandupRepository{db: db}
}

// --- StandupRun Methods ---

func (r *PostgresStandupRepository) UpsertRun(ctx context.Context, run *standup.Run) error {
	// The no-op DO UPDATE lets RETURNING yield the existing row without
	// ever touching the status of a closed run.
	query := `INSERT INTO standup_runs (workspace_id, run_date, status)
              VALUES ($1, $2, $3)
              ON CONFLICT (workspace_id, run_date) DO UPDATE SET updated_at = NOW()
              RETURNING id, status, closed_at, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, run.WorkspaceID, run.RunDate, run.Status).
		Scan(&run.ID, &run.Status, &run.ClosedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting standup run: %w", err)
	}
	return nil
}

func (r *PostgresStandupRepository) GetRun(ctx context.Context, workspaceID string, runDate time.Time) (*standup.Run, error) {
	query := `SELECT id, workspace_id, run_date, status, closed_at, created_at, updated_at
              FROM standup_runs WHERE workspace_id = $1 AND run_date = $2`
	return r.scanRun(r.db.QueryRowContext(ctx, query, workspaceID, runDate))
}

func (r *PostgresStandupRepository) GetRunByID(ctx context.Context, id int64) (*standup.Run, error) {
	query := `SELECT id, workspace_id, run_date, status, closed_at, created_at, updated_at
              FROM standup_runs WHERE id = $1`
	return r.scanRun(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresStandupRepository) scanRun(row *sql.Row) (*standup.Run, error) {
	run := &standup.Run{}
	err := row.Scan(&run.ID, &run.WorkspaceID, &run.RunDate, &run.Status, &run.ClosedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting standup run: %w", err)
	}
	return run, nil
}

func (r *PostgresStandupRepository) CloseRun(ctx context.Context, runID int64, closedAt time.Time) error {
	query := `UPDATE standup_runs
              SET status = $1, closed_at = $2, updated_at = NOW()
              WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, standup.RunClosed, closedAt, runID, standup.RunOpen)
	if err != nil {
		return fmt.Errorf("error closing standup run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking close result: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PostgresStandupRepository) ListClosedRunsBetween(ctx context.Context, workspaceID string, from, to time.Time) ([]*standup.Run, error) {
	query := `SELECT id, workspace_id, run_date, status, closed_at, created_at, updated_at
              FROM standup_runs
              WHERE workspace_id = $1 AND run_date BETWEEN $2 AND $3 AND status = $4
              ORDER BY run_date DESC`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, from, to, standup.RunClosed)
	if err != nil {
		return nil, fmt.Errorf("error listing closed runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*standup.Run, 0)
	for rows.Next() {
		run := &standup.Run{}
		if err := rows.Scan(&run.ID, &run.WorkspaceID, &run.RunDate, &run.Status, &run.ClosedAt, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning closed run: %w", err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed runs: %w", err)
	}
	return runs, nil
}

func (r *PostgresStandupRepository) DeleteRunsBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	// Responses cascade via their run foreign key.
	query := `DELETE FROM standup_runs WHERE workspace_id = $1 AND created_at < $2`

	result, err := r.db.ExecContext(ctx, query, workspaceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old runs: %w", err)
	}
	return result.RowsAffected()
}

// --- StandupResponse Methods ---

func (r *PostgresStandupRepository) UpsertResponse(ctx context.Context, resp *standup.Response) error {
	blob, err := json.Marshal(resp.Session)
	if err != nil {
		return fmt.Errorf("error encoding session blob: %w", err)
	}

	query := `INSERT INTO standup_responses (run_id, member_id, status, answers, dm_error)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (run_id, member_id) DO UPDATE SET
                status = EXCLUDED.status,
                answers = EXCLUDED.answers,
                dm_error = EXCLUDED.dm_error,
                updated_at = NOW()
              RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query, resp.RunID, resp.MemberID, resp.Status, blob, resp.DMError).
		Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting standup response: %w", err)
	}
	return nil
}

func (r *PostgresStandupRepository) GetResponse(ctx context.Context, runID, memberID int64) (*standup.Response, error) {
	query := `SELECT id, run_id, member_id, status, answers, submitted_at, dm_error, created_at, updated_at
              FROM standup_responses WHERE run_id = $1 AND member_id = $2`

	resp, err := scanResponse(r.db.QueryRowContext(ctx, query, runID, memberID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("error getting standup response: %w", err)
	}
	return resp, nil
}

func (r *PostgresStandupRepository) FindActiveResponseByUser(ctx context.Context, userID string) (*standup.Response, error) {
	query := `SELECT sr.id, sr.run_id, sr.member_id, sr.status, sr.answers, sr.submitted_at, sr.dm_error, sr.created_at, sr.updated_at
              FROM standup_responses sr
              JOIN roster_members m ON m.id = sr.member_id
              JOIN standup_runs run ON run.id = sr.run_id
              WHERE m.user_id = $1 AND sr.status IN ($2, $3) AND run.status = $4
              ORDER BY sr.created_at DESC
              LIMIT 1`

	resp, err := scanResponse(r.db.QueryRowContext(ctx, query, userID,
		standup.StatusPending, standup.StatusInProgress, standup.RunOpen))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("error finding active response for user: %w", err)
	}
	return resp, nil
}

func (r *PostgresStandupRepository) SaveSession(ctx context.Context, runID, memberID int64, state standup.SessionState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error encoding session blob: %w", err)
	}

	// The conflict guard keeps submitted/excused responses from regressing.
	query := `INSERT INTO standup_responses (run_id, member_id, status, answers)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (run_id, member_id) DO UPDATE SET
                status = EXCLUDED.status,
                answers = EXCLUDED.answers,
                updated_at = NOW()
              WHERE standup_responses.status IN ($5, $3)`

	_, err = r.db.ExecContext(ctx, query, runID, memberID, standup.StatusInProgress, blob, standup.StatusPending)
	if err != nil {
		return fmt.Errorf("error saving session state: %w", err)
	}
	return nil
}

func (r *PostgresStandupRepository) SubmitResponse(ctx context.Context, runID, memberID int64, answers standup.Answers, submittedAt time.Time) error {
	blob, err := json.Marshal(standup.SessionState{CurrentStep: standup.StepConfirm, Answers: answers})
	if err != nil {
		return fmt.Errorf("error encoding answers: %w", err)
	}

	query := `UPDATE standup_responses
              SET status = $1, answers = $2, submitted_at = $3, updated_at = NOW()
              WHERE run_id = $4 AND member_id = $5`

	result, err := r.db.ExecContext(ctx, query, standup.StatusSubmitted, blob, submittedAt, runID, memberID)
	if err != nil {
		return fmt.Errorf("error submitting standup response: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking submit result: %w", err)
	}
	if affected == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (r *PostgresStandupRepository) MarkMissing(ctx context.Context, runID int64) (int64, error) {
	query := `UPDATE standup_responses
              SET status = $1, updated_at = NOW()
              WHERE run_id = $2 AND status IN ($3, $4)`

	result, err := r.db.ExecContext(ctx, query, standup.StatusMissing, runID,
		standup.StatusPending, standup.StatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("error marking responses missing: %w", err)
	}
	return result.RowsAffected()
}

func (r *PostgresStandupRepository) ListResponses(ctx context.Context, runID int64) ([]*standup.Response, error) {
	query := responseWithMemberSelect + `
              WHERE sr.run_id = $1
              ORDER BY m.display_name`
	return r.listResponsesWithMembers(ctx, query, runID)
}

func (r *PostgresStandupRepository) ListResponsesByStatus(ctx context.Context, runID int64, statuses ...standup.ResponseStatus) ([]*standup.Response, error) {
	if len(statuses) == 0 {
		return []*standup.Response{}, nil
	}

	query := responseWithMemberSelect + ` WHERE sr.run_id = $1 AND sr.status = ANY($2) ORDER BY m.display_name`
	list := make([]string, len(statuses))
	for i, s := range statuses {
		list[i] = string(s)
	}
	return r.listResponsesWithMembers(ctx, query, runID, pq.Array(list))
}

const responseWithMemberSelect = `
	SELECT sr.id, sr.run_id, sr.member_id, sr.status, sr.answers, sr.submitted_at, sr.dm_error, sr.created_at, sr.updated_at,
	       m.id, m.workspace_id, m.user_id, m.display_name, m.is_active, m.created_at, m.updated_at
	FROM standup_responses sr
	JOIN roster_members m ON m.id = sr.member_id`

func (r *PostgresStandupRepository) listResponsesWithMembers(ctx context.Context, query string, args ...any) ([]*standup.Response, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing standup responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*standup.Response, 0)
	for rows.Next() {
		resp := &standup.Response{Member: &roster.Member{}}
		var blob []byte
		m := resp.Member
		if err := rows.Scan(
			&resp.ID, &resp.RunID, &resp.MemberID, &resp.Status, &blob, &resp.SubmittedAt, &resp.DMError,
			&resp.CreatedAt, &resp.UpdatedAt,
			&m.ID, &m.WorkspaceID, &m.UserID, &m.DisplayName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning standup response: %w", err)
		}
		if err := decodeSession(blob, &resp.Session); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standup responses: %w", err)
	}
	return responses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResponse(row rowScanner) (*standup.Response, error) {
	resp := &standup.Response{}
	var blob []byte
	if err := row.Scan(
		&resp.ID, &resp.RunID, &resp.MemberID, &resp.Status, &blob, &resp.SubmittedAt, &resp.DMError,
		&resp.CreatedAt, &resp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeSession(blob, &resp.Session); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeSession(blob []byte, state *standup.SessionState) error {
	if len(blob) == 0 {
		return nil
	}
	if err := json.Unmarshal(blob, state); err != nil {
		return fmt.Errorf("error decoding session blob: %w", err)
	}
	return nil
}
