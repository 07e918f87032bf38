package app

import (
	"context"
	"fmt"
	"time"

	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"
)

// WorkspaceService manages per-workspace standup configuration.
type WorkspaceService struct {
	workspaceRepo workspace.Repository
}

func NewWorkspaceService(wr workspace.Repository) *WorkspaceService {
	return &WorkspaceService{workspaceRepo: wr}
}

// Get returns the workspace configuration, or ErrWorkspaceNotConfigured.
func (s *WorkspaceService) Get(ctx context.Context, workspaceID string) (*workspace.Config, error) {
	cfg, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if err == idb.ErrConfigNotFound {
			return nil, ErrWorkspaceNotConfigured
		}
		return nil, fmt.Errorf("loading workspace config: %w", err)
	}
	return cfg, nil
}

// Setup validates and persists a workspace configuration. The same call
// creates and updates; workspace identity is the conflict key.
func (s *WorkspaceService) Setup(ctx context.Context, cfg *workspace.Config) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	if !validClockTime(cfg.WindowOpenTime) || !validClockTime(cfg.WindowCloseTime) {
		return ErrInvalidTimeFormat
	}
	if len(cfg.ReminderTimes) > 3 {
		return ErrTooManyReminders
	}
	for _, t := range cfg.ReminderTimes {
		if !validClockTime(t) {
			return ErrInvalidTimeFormat
		}
	}

	if err := s.workspaceRepo.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("saving workspace config: %w", err)
	}
	return nil
}

// Update applies a mutation to an existing configuration and re-validates.
func (s *WorkspaceService) Update(ctx context.Context, workspaceID string, mutate func(*workspace.Config)) (*workspace.Config, error) {
	cfg, err := s.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	mutate(cfg)
	if err := s.Setup(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validClockTime(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil
}
