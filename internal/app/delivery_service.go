package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// jobBatchSize caps how many due jobs one tick processes.
const jobBatchSize = 10

// DeliveryService fans a closed run out to its destinations as independent
// jobs and drains the job queue with exponential backoff. One destination's
// failure never blocks or rolls back another's delivery; the engine has no
// notion of run-level success, only per-job.
type DeliveryService struct {
	workspaceRepo workspace.Repository
	standupRepo   standup.Repository
	deliveryRepo  delivery.Repository
	publishers    map[delivery.Destination]delivery.Publisher
	logger        *logrus.Logger

	// tickMu keeps tick invocations from overlapping in a single process.
	tickMu sync.Mutex

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewDeliveryService(
	wr workspace.Repository,
	sr standup.Repository,
	dr delivery.Repository,
	publishers map[delivery.Destination]delivery.Publisher,
	logger *logrus.Logger,
) *DeliveryService {
	return &DeliveryService{
		workspaceRepo: wr,
		standupRepo:   sr,
		deliveryRepo:  dr,
		publishers:    publishers,
		logger:        logger,
		Now:           time.Now,
	}
}

// Destinations determines the enabled destination set from workspace config
// presence-checks: the chat platform and the CSV export are always on,
// spreadsheet and Notion only when their identifiers are configured.
func Destinations(cfg *workspace.Config) []delivery.Destination {
	destinations := []delivery.Destination{delivery.DestinationDiscord}
	if cfg.GoogleSpreadsheetID != "" {
		destinations = append(destinations, delivery.DestinationSheets)
	}
	if cfg.NotionParentPageID != "" {
		destinations = append(destinations, delivery.DestinationNotion)
	}
	return append(destinations, delivery.DestinationCSV)
}

// Enqueue creates one PENDING job per enabled destination for the run, due
// immediately. A destination the workspace enables but this process has no
// publisher for (missing API token) is skipped with a warning rather than
// enqueued to fail.
func (s *DeliveryService) Enqueue(ctx context.Context, workspaceID string, runID int64) error {
	cfg, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if err == idb.ErrConfigNotFound {
			return ErrWorkspaceNotConfigured
		}
		return fmt.Errorf("loading workspace config: %w", err)
	}

	now := s.Now()
	for _, destination := range Destinations(cfg) {
		if _, ok := s.publishers[destination]; !ok {
			s.logger.WithFields(logrus.Fields{
				"workspace_id": workspaceID,
				"run_id":       runID,
				"destination":  destination,
			}).Warn("Destination enabled but no publisher is configured; skipping")
			continue
		}
		job := &delivery.Job{
			RunID:         runID,
			Destination:   destination,
			Status:        delivery.JobPending,
			AttemptCount:  0,
			NextAttemptAt: now,
		}
		if err := s.deliveryRepo.Create(ctx, job); err != nil {
			return fmt.Errorf("creating %s delivery job: %w", destination, err)
		}
	}

	s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "run_id": runID}).
		Info("Delivery jobs enqueued")
	return nil
}

// Tick processes one batch of due jobs, oldest-enqueued first, each inside
// its own failure boundary. Overlapping invocations are skipped rather than
// queued.
func (s *DeliveryService) Tick(ctx context.Context) error {
	if !s.tickMu.TryLock() {
		return nil
	}
	defer s.tickMu.Unlock()

	jobs, err := s.deliveryRepo.ListDue(ctx, s.Now(), jobBatchSize)
	if err != nil {
		return fmt.Errorf("listing due delivery jobs: %w", err)
	}

	for _, job := range jobs {
		s.processJob(ctx, job)
	}
	return nil
}

func (s *DeliveryService) processJob(ctx context.Context, job *delivery.Job) {
	log := s.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"run_id":      job.RunID,
		"destination": job.Destination,
		"attempt":     job.AttemptCount + 1,
	})
	log.Info("Processing delivery job")

	url, err := s.publish(ctx, job)
	if err != nil {
		s.recordFailure(ctx, job, err, log)
		return
	}

	job.Status = delivery.JobSuccess
	job.CompletedAt.Time = s.Now()
	job.CompletedAt.Valid = true
	if updateErr := s.deliveryRepo.Update(ctx, job); updateErr != nil {
		log.WithError(updateErr).Error("Failed to record job success")
		return
	}
	log.WithField("url", url).Info("Delivery job completed")
}

func (s *DeliveryService) publish(ctx context.Context, job *delivery.Job) (string, error) {
	publisher, ok := s.publishers[job.Destination]
	if !ok {
		return "", fmt.Errorf("no publisher registered for destination %s", job.Destination)
	}

	run, err := s.standupRepo.GetRunByID(ctx, job.RunID)
	if err != nil {
		return "", fmt.Errorf("loading run %d: %w", job.RunID, err)
	}
	responses, err := s.standupRepo.ListResponses(ctx, job.RunID)
	if err != nil {
		return "", fmt.Errorf("loading responses for run %d: %w", job.RunID, err)
	}

	return publisher.Publish(ctx, run, responses)
}

// recordFailure applies the backoff state machine: increment the attempt
// count, then either schedule a retry or mark the job terminally FAILED once
// the ceiling is reached. Error text is always recorded.
func (s *DeliveryService) recordFailure(ctx context.Context, job *delivery.Job, cause error, log *logrus.Entry) {
	backoff := delivery.Backoff(job.AttemptCount)
	job.AttemptCount++
	job.LastError.String = cause.Error()
	job.LastError.Valid = true

	if job.AttemptCount >= delivery.MaxAttempts {
		job.Status = delivery.JobFailed
		if err := s.deliveryRepo.Update(ctx, job); err != nil {
			log.WithError(err).Error("Failed to record permanent job failure")
			return
		}
		log.WithError(cause).Errorf("Delivery job permanently failed after %d attempts", delivery.MaxAttempts)
		return
	}

	job.Status = delivery.JobRetrying
	job.NextAttemptAt = s.Now().Add(backoff)
	if err := s.deliveryRepo.Update(ctx, job); err != nil {
		log.WithError(err).Error("Failed to record job retry")
		return
	}
	log.WithError(cause).Warnf("Delivery job failed, retrying in %s", backoff)
}

// Resend is the operator-initiated requeue: FAILED and RETRYING jobs of the
// run for the given date (optionally one destination) go back to PENDING
// with the attempt count reset and the error cleared. Returns the number of
// jobs touched; errors when no run exists for the date.
func (s *DeliveryService) Resend(ctx context.Context, workspaceID string, runDate time.Time, destination *delivery.Destination) (int64, error) {
	run, err := s.standupRepo.GetRun(ctx, workspaceID, runDate)
	if err != nil {
		if err == idb.ErrRunNotFound {
			return 0, fmt.Errorf("no run found for %s", runDate.Format("2006-01-02"))
		}
		return 0, fmt.Errorf("loading run: %w", err)
	}

	count, err := s.deliveryRepo.ResetForResend(ctx, run.ID, destination, s.Now())
	if err != nil {
		return 0, fmt.Errorf("resetting delivery jobs: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"run_id": run.ID, "jobs": count}).Info("Delivery jobs requeued")
	return count, nil
}
