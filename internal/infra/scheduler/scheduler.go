package scheduler

import (
	"context"
	"time"

	"standup_bot/internal/domain/workspace"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StandupRunner drives the run lifecycle for one workspace.
type StandupRunner interface {
	Open(ctx context.Context, workspaceID string) error
	Remind(ctx context.Context, workspaceID string) error
	Close(ctx context.Context, workspaceID string) error
}

// DeliveryTicker processes due delivery jobs.
type DeliveryTicker interface {
	Tick(ctx context.Context) error
}

// CleanupRunner sweeps expired data per the retention policy.
type CleanupRunner interface {
	Run(ctx context.Context) error
}

// StandupScheduler translates per-workspace wall-clock schedules into run
// actions. Matching is exact-minute: the tick fires once a minute, converts
// the moment into each workspace's local zone, and acts when the formatted
// time equals a configured trigger. A tick missed during downtime is not
// replayed.
type StandupScheduler struct {
	cronEngine    *cron.Cron
	workspaceRepo workspace.Repository
	runner        StandupRunner
	delivery      DeliveryTicker
	cleanup       CleanupRunner
	logger        *logrus.Logger

	cronSpecStandup  string
	cronSpecDelivery string
	cronSpecCleanup  string

	Now func() time.Time
}

func NewStandupScheduler(
	workspaceRepo workspace.Repository,
	runner StandupRunner,
	delivery DeliveryTicker,
	cleanup CleanupRunner,
	logger *logrus.Logger,
	cronSpecStandup string, // e.g., "* * * * *" (every minute)
	cronSpecDelivery string, // e.g., "* * * * *" (every minute)
	cronSpecCleanup string, // e.g., "0 2 * * *" (2 AM daily)
) *StandupScheduler {
	return &StandupScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.UTC)),
		workspaceRepo:    workspaceRepo,
		runner:           runner,
		delivery:         delivery,
		cleanup:          cleanup,
		logger:           logger,
		cronSpecStandup:  cronSpecStandup,
		cronSpecDelivery: cronSpecDelivery,
		cronSpecCleanup:  cronSpecCleanup,
		Now:              time.Now,
	}
}

func (s *StandupScheduler) Start() error {
	s.logger.Info("Starting standup scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpecStandup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.StandupTick(ctx, s.Now())
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecDelivery, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.delivery.Tick(ctx); err != nil {
			s.logger.WithField("error", err).Error("Delivery tick failed")
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecCleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.cleanup.Run(ctx); err != nil {
			s.logger.WithField("error", err).Error("Retention cleanup failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Standup scheduler started with jobs")
	return nil
}

// StandupTick evaluates every workspace schedule against the given moment.
func (s *StandupScheduler) StandupTick(ctx context.Context, now time.Time) {
	configs, err := s.workspaceRepo.ListAll(ctx)
	if err != nil {
		s.logger.WithField("error", err).Error("Failed to list workspace configs for standup tick")
		return
	}

	for _, cfg := range configs {
		s.evaluateWorkspace(ctx, cfg, now)
	}
}

func (s *StandupScheduler) evaluateWorkspace(ctx context.Context, cfg *workspace.Config, now time.Time) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"workspace_id": cfg.WorkspaceID,
			"timezone":     cfg.Timezone,
		}).Warn("Workspace has invalid timezone; skipping")
		return
	}

	localNow := now.In(loc)
	// Standups run on workdays only; the weekend is judged in the
	// workspace's own zone.
	if wd := localNow.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return
	}

	local := localNow.Format("15:04")
	log := s.logger.WithFields(logrus.Fields{"workspace_id": cfg.WorkspaceID, "local_time": local})

	switch {
	case local == cfg.WindowOpenTime:
		log.Info("Window open time reached; opening run")
		if err := s.runner.Open(ctx, cfg.WorkspaceID); err != nil {
			log.WithField("error", err).Error("Failed to open standup run")
		}
	case local == cfg.WindowCloseTime:
		log.Info("Window close time reached; closing run")
		if err := s.runner.Close(ctx, cfg.WorkspaceID); err != nil {
			log.WithField("error", err).Error("Failed to close standup run")
		}
	case containsTime(cfg.ReminderTimes, local):
		log.Info("Reminder time reached; sending reminders")
		if err := s.runner.Remind(ctx, cfg.WorkspaceID); err != nil {
			log.WithField("error", err).Error("Failed to send reminders")
		}
	}
}

func containsTime(times []string, target string) bool {
	for _, t := range times {
		if t == target {
			return true
		}
	}
	return false
}

func (s *StandupScheduler) Stop() {
	s.logger.Info("Stopping standup scheduler")
	ctx := s.cronEngine.Stop() // Stops new triggers, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Standup scheduler gracefully stopped")
}
