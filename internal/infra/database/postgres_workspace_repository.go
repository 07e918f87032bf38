package database

import (
	"context"
	"database/sql"
	"fmt"

	"standup_bot/internal/domain/workspace"

	"github.com/lib/pq" // For pq.Array over reminder times
)

// Custom errors
var ErrConfigNotFound = fmt.Errorf("workspace config not found")

type PostgresWorkspaceRepository struct {
	db *sql.DB
}

func NewPostgresWorkspaceRepository(db *sql.DB) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{db: db}
}

func (r *PostgresWorkspaceRepository) Get(ctx context.Context, workspaceID string) (*workspace.Config, error) {
	query := `SELECT id, workspace_id, timezone, window_open_time, window_close_time, reminder_times,
                     management_channel_id, report_channel_id, google_spreadsheet_id, notion_parent_page_id,
                     retention_days, created_at, updated_at
              FROM workspace_configs WHERE workspace_id = $1`

	cfg := &workspace.Config{}
	err := r.db.QueryRowContext(ctx, query, workspaceID).Scan(
		&cfg.ID, &cfg.WorkspaceID, &cfg.Timezone, &cfg.WindowOpenTime, &cfg.WindowCloseTime,
		pq.Array(&cfg.ReminderTimes), &cfg.ManagementChannelID, &cfg.ReportChannelID,
		&cfg.GoogleSpreadsheetID, &cfg.NotionParentPageID, &cfg.RetentionDays,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("error getting workspace config: %w", err)
	}
	return cfg, nil
}

func (r *PostgresWorkspaceRepository) Upsert(ctx context.Context, cfg *workspace.Config) error {
	query := `INSERT INTO workspace_configs
                (workspace_id, timezone, window_open_time, window_close_time, reminder_times,
                 management_channel_id, report_channel_id, google_spreadsheet_id, notion_parent_page_id, retention_days)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              ON CONFLICT (workspace_id) DO UPDATE SET
                timezone = EXCLUDED.timezone,
                window_open_time = EXCLUDED.window_open_time,
                window_close_time = EXCLUDED.window_close_time,
                reminder_times = EXCLUDED.reminder_times,
                management_channel_id = EXCLUDED.management_channel_id,
                report_channel_id = EXCLUDED.report_channel_id,
                google_spreadsheet_id = EXCLUDED.google_spreadsheet_id,
                notion_parent_page_id = EXCLUDED.notion_parent_page_id,
                retention_days = EXCLUDED.retention_days,
                updated_at = NOW()
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		cfg.WorkspaceID, cfg.Timezone, cfg.WindowOpenTime, cfg.WindowCloseTime, pq.Array(cfg.ReminderTimes),
		cfg.ManagementChannelID, cfg.ReportChannelID, cfg.GoogleSpreadsheetID, cfg.NotionParentPageID, cfg.RetentionDays,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting workspace config: %w", err)
	}
	return nil
}

func (r *PostgresWorkspaceRepository) ListAll(ctx context.Context) ([]*workspace.Config, error) {
	query := `SELECT id, workspace_id, timezone, window_open_time, window_close_time, reminder_times,
                     management_channel_id, report_channel_id, google_spreadsheet_id, notion_parent_page_id,
                     retention_days, created_at, updated_at
              FROM workspace_configs ORDER BY workspace_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing workspace configs: %w", err)
	}
	defer rows.Close()

	configs := make([]*workspace.Config, 0)
	for rows.Next() {
		cfg := &workspace.Config{}
		if err := rows.Scan(
			&cfg.ID, &cfg.WorkspaceID, &cfg.Timezone, &cfg.WindowOpenTime, &cfg.WindowCloseTime,
			pq.Array(&cfg.ReminderTimes), &cfg.ManagementChannelID, &cfg.ReportChannelID,
			&cfg.GoogleSpreadsheetID, &cfg.NotionParentPageID, &cfg.RetentionDays,
			&cfg.CreatedAt, &cfg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning workspace config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspace configs: %w", err)
	}
	return configs, nil
}
