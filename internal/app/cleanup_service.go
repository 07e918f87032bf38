package app

import (
	"context"
	"time"

	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"

	"github.com/sirupsen/logrus"
)

// CleanupService enforces each workspace's retention policy: runs (and
// their responses, via cascade), delivery jobs, and expired excusals older
// than the retention window are deleted.
type CleanupService struct {
	workspaceRepo workspace.Repository
	standupRepo   standup.Repository
	deliveryRepo  delivery.Repository
	rosterRepo    roster.Repository
	logger        *logrus.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewCleanupService(
	wr workspace.Repository,
	sr standup.Repository,
	dr delivery.Repository,
	rr roster.Repository,
	logger *logrus.Logger,
) *CleanupService {
	return &CleanupService{
		workspaceRepo: wr,
		standupRepo:   sr,
		deliveryRepo:  dr,
		rosterRepo:    rr,
		logger:        logger,
		Now:           time.Now,
	}
}

// Run performs one cleanup pass across all workspaces. Per-workspace errors
// are logged and do not stop the batch.
func (s *CleanupService) Run(ctx context.Context) error {
	configs, err := s.workspaceRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		cutoff := s.Now().AddDate(0, 0, -cfg.Retention())
		log := s.logger.WithField("workspace_id", cfg.WorkspaceID)

		jobs, err := s.deliveryRepo.DeleteJobsForRunsBefore(ctx, cfg.WorkspaceID, cutoff)
		if err != nil {
			log.WithError(err).Error("Cleanup of delivery jobs failed")
			continue
		}
		runs, err := s.standupRepo.DeleteRunsBefore(ctx, cfg.WorkspaceID, cutoff)
		if err != nil {
			log.WithError(err).Error("Cleanup of runs failed")
			continue
		}
		excusals, err := s.rosterRepo.DeleteExcusalsEndingBefore(ctx, cfg.WorkspaceID, cutoff)
		if err != nil {
			log.WithError(err).Error("Cleanup of excusals failed")
			continue
		}

		log.WithFields(logrus.Fields{"runs": runs, "jobs": jobs, "excusals": excusals}).
			Info("Cleanup completed")
	}
	return nil
}
