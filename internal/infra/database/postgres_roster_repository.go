package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"standup_bot/internal/domain/roster"
)

// Custom errors
var ErrMemberNotFound = fmt.Errorf("roster member not found")
var ErrDuplicateMember = fmt.Errorf("roster member with this user ID already exists in the workspace")

type PostgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) *PostgresRosterRepository {
	return &PostgresRosterRepository{db: db}
}

func (r *PostgresRosterRepository) Create(ctx context.Context, m *roster.Member) error {
	query := `INSERT INTO roster_members (workspace_id, user_id, display_name, is_active)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, m.WorkspaceID, m.UserID, m.DisplayName, m.IsActive).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "roster_members_workspace_user_key") {
			return ErrDuplicateMember
		}
		return fmt.Errorf("error creating roster member: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) GetByID(ctx context.Context, id int64) (*roster.Member, error) {
	query := `SELECT id, workspace_id, user_id, display_name, is_active, created_at, updated_at
              FROM roster_members WHERE id = $1`
	m := &roster.Member{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.DisplayName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting roster member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresRosterRepository) GetByUserID(ctx context.Context, workspaceID, userID string) (*roster.Member, error) {
	query := `SELECT id, workspace_id, user_id, display_name, is_active, created_at, updated_at
              FROM roster_members WHERE workspace_id = $1 AND user_id = $2`
	m := &roster.Member{}
	err := r.db.QueryRowContext(ctx, query, workspaceID, userID).
		Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.DisplayName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting roster member by user ID: %w", err)
	}
	return m, nil
}

func (r *PostgresRosterRepository) Update(ctx context.Context, m *roster.Member) error {
	query := `UPDATE roster_members
              SET display_name = $1, is_active = $2, updated_at = NOW()
              WHERE id = $3
              RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, m.DisplayName, m.IsActive, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrMemberNotFound
		}
		return fmt.Errorf("error updating roster member: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) ListActive(ctx context.Context, workspaceID string) ([]*roster.Member, error) {
	query := `SELECT id, workspace_id, user_id, display_name, is_active, created_at, updated_at
              FROM roster_members WHERE workspace_id = $1 AND is_active = TRUE
              ORDER BY display_name`
	return r.listMembers(ctx, query, workspaceID)
}

func (r *PostgresRosterRepository) ListAll(ctx context.Context, workspaceID string) ([]*roster.Member, error) {
	query := `SELECT id, workspace_id, user_id, display_name, is_active, created_at, updated_at
              FROM roster_members WHERE workspace_id = $1
              ORDER BY id`
	return r.listMembers(ctx, query, workspaceID)
}

func (r *PostgresRosterRepository) listMembers(ctx context.Context, query string, args ...any) ([]*roster.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing roster members: %w", err)
	}
	defer rows.Close()

	members := make([]*roster.Member, 0)
	for rows.Next() {
		m := &roster.Member{}
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.DisplayName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning roster member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster members: %w", err)
	}
	return members, nil
}

func (r *PostgresRosterRepository) AddExcusal(ctx context.Context, e *roster.Excusal) error {
	query := `INSERT INTO excusals (member_id, start_date, end_date, reason)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, e.MemberID, e.StartDate, e.EndDate, e.Reason).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error adding excusal: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) RemoveExcusal(ctx context.Context, memberID int64, coveringDate time.Time) (int64, error) {
	query := `DELETE FROM excusals
              WHERE member_id = $1 AND start_date <= $2 AND end_date >= $2`

	result, err := r.db.ExecContext(ctx, query, memberID, coveringDate)
	if err != nil {
		return 0, fmt.Errorf("error removing excusal: %w", err)
	}
	return result.RowsAffected()
}

func (r *PostgresRosterRepository) ListExcusalsByMember(ctx context.Context, memberID int64) ([]*roster.Excusal, error) {
	query := `SELECT id, member_id, start_date, end_date, reason, created_at
              FROM excusals WHERE member_id = $1
              ORDER BY start_date DESC`
	return r.listExcusals(ctx, query, memberID)
}

func (r *PostgresRosterRepository) ListExcusalsByWorkspace(ctx context.Context, workspaceID string) ([]*roster.Excusal, error) {
	query := `SELECT e.id, e.member_id, e.start_date, e.end_date, e.reason, e.created_at
              FROM excusals e
              JOIN roster_members m ON m.id = e.member_id
              WHERE m.workspace_id = $1 AND m.is_active = TRUE
              ORDER BY e.start_date`
	return r.listExcusals(ctx, query, workspaceID)
}

func (r *PostgresRosterRepository) listExcusals(ctx context.Context, query string, args ...any) ([]*roster.Excusal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing excusals: %w", err)
	}
	defer rows.Close()

	excusals := make([]*roster.Excusal, 0)
	for rows.Next() {
		e := &roster.Excusal{}
		if err := rows.Scan(&e.ID, &e.MemberID, &e.StartDate, &e.EndDate, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning excusal: %w", err)
		}
		excusals = append(excusals, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating excusals: %w", err)
	}
	return excusals, nil
}

func (r *PostgresRosterRepository) DeleteExcusalsEndingBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM excusals
              WHERE end_date < $2
              AND member_id IN (SELECT id FROM roster_members WHERE workspace_id = $1)`

	result, err := r.db.ExecContext(ctx, query, workspaceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired excusals: %w", err)
	}
	return result.RowsAffected()
}
