package app

import (
	"context"
	"fmt"
	"time"

	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// RunService coordinates the daily run lifecycle: opening the window
// (snapshot the roster, excuse exempt members, DM the rest), reminding
// stragglers, and closing the window (force-finalize and hand off to the
// delivery engine).
type RunService struct {
	workspaceRepo workspace.Repository
	rosterRepo    roster.Repository
	standupRepo   standup.Repository
	client        messenger.Client
	delivery      *DeliveryService
	logger        *logrus.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewRunService(
	wr workspace.Repository,
	rr roster.Repository,
	sr standup.Repository,
	client messenger.Client,
	delivery *DeliveryService,
	logger *logrus.Logger,
) *RunService {
	return &RunService{
		workspaceRepo: wr,
		rosterRepo:    rr,
		standupRepo:   sr,
		client:        client,
		delivery:      delivery,
		logger:        logger,
		Now:           time.Now,
	}
}

// Open creates (or resumes) today's run and initiates the flow for every
// active roster member: excused members are marked EXCUSED without a
// message, the rest get the opening DM. A single member's delivery failure
// is recorded as DM_FAILED and never aborts the remaining members.
// Re-running Open does not duplicate DMs; only members without a response,
// or whose previous DM failed, are processed.
func (s *RunService) Open(ctx context.Context, workspaceID string) error {
	cfg, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if err == idb.ErrConfigNotFound {
			return ErrWorkspaceNotConfigured
		}
		return fmt.Errorf("loading workspace config: %w", err)
	}

	runDate := s.today(cfg.Timezone)

	existing, err := s.standupRepo.GetRun(ctx, workspaceID, runDate)
	if err != nil && err != idb.ErrRunNotFound {
		return fmt.Errorf("checking existing run: %w", err)
	}
	if existing != nil && existing.Status != standup.RunOpen {
		return ErrRunNotOpen
	}

	run := &standup.Run{WorkspaceID: workspaceID, RunDate: runDate, Status: standup.RunOpen}
	if err := s.standupRepo.UpsertRun(ctx, run); err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	members, err := s.rosterRepo.ListActive(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("listing active roster members: %w", err)
	}
	excusals, err := s.rosterRepo.ListExcusalsByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("listing excusals: %w", err)
	}
	excusalsByMember := make(map[int64][]*roster.Excusal)
	for _, e := range excusals {
		excusalsByMember[e.MemberID] = append(excusalsByMember[e.MemberID], e)
	}

	log := s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "run_id": run.ID})
	log.WithField("members", len(members)).Info("Opening standup run")

	for _, member := range members {
		if err := s.openForMember(ctx, cfg, run, member, excusalsByMember[member.ID]); err != nil {
			// Isolated per member: record and continue with the rest.
			log.WithField("member_id", member.ID).WithError(err).Error("Failed to process roster member")
		}
	}
	return nil
}

func (s *RunService) openForMember(ctx context.Context, cfg *workspace.Config, run *standup.Run, member *roster.Member, excusals []*roster.Excusal) error {
	existing, err := s.standupRepo.GetResponse(ctx, run.ID, member.ID)
	if err != nil && err != idb.ErrResponseNotFound {
		return fmt.Errorf("checking existing response: %w", err)
	}
	// Skip members already prompted or settled; only absent rows and failed
	// DMs are (re)processed.
	if existing != nil && existing.Status != standup.StatusDMFailed {
		return nil
	}

	for _, e := range excusals {
		if e.Covers(run.RunDate) {
			return s.standupRepo.UpsertResponse(ctx, &standup.Response{
				RunID:    run.ID,
				MemberID: member.ID,
				Status:   standup.StatusExcused,
			})
		}
	}

	msg := messenger.Message{
		Text: fmt.Sprintf(
			"Good morning! It's standup time.\n\nPlease complete your standup by %s %s.",
			cfg.WindowCloseTime, cfg.Timezone,
		),
		Buttons: []messenger.Button{{
			Label:   "Start Standup",
			Command: messenger.Command{Action: messenger.ActionStart, MemberID: member.ID, RunID: run.ID},
		}},
	}

	if sendErr := s.client.SendDirectMessage(ctx, member.UserID, msg); sendErr != nil {
		s.logger.WithFields(logrus.Fields{"member_id": member.ID, "user_id": member.UserID}).
			WithError(sendErr).Error("Failed to DM roster member")
		resp := &standup.Response{RunID: run.ID, MemberID: member.ID, Status: standup.StatusDMFailed}
		resp.DMError.String = sendErr.Error()
		resp.DMError.Valid = true
		return s.standupRepo.UpsertResponse(ctx, resp)
	}

	return s.standupRepo.UpsertResponse(ctx, &standup.Response{
		RunID:    run.ID,
		MemberID: member.ID,
		Status:   standup.StatusPending,
	})
}

// Remind re-sends a lighter prompt to members of the current OPEN run whose
// response is still PENDING or IN_PROGRESS. Per-member failures are logged
// and skipped.
func (s *RunService) Remind(ctx context.Context, workspaceID string) error {
	cfg, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if err == idb.ErrConfigNotFound {
			return ErrWorkspaceNotConfigured
		}
		return fmt.Errorf("loading workspace config: %w", err)
	}

	run, err := s.standupRepo.GetRun(ctx, workspaceID, s.today(cfg.Timezone))
	if err != nil {
		if err == idb.ErrRunNotFound {
			return nil
		}
		return fmt.Errorf("loading today's run: %w", err)
	}
	if run.Status != standup.RunOpen {
		return nil
	}

	pending, err := s.standupRepo.ListResponsesByStatus(ctx, run.ID, standup.StatusPending, standup.StatusInProgress)
	if err != nil {
		return fmt.Errorf("listing pending responses: %w", err)
	}

	for _, resp := range pending {
		if resp.Member == nil {
			continue
		}
		msg := messenger.Message{
			Text: "Reminder: please complete your standup!",
			Buttons: []messenger.Button{{
				Label:   "Continue Standup",
				Command: messenger.Command{Action: messenger.ActionContinue, MemberID: resp.MemberID, RunID: run.ID},
			}},
		}
		if err := s.client.SendDirectMessage(ctx, resp.Member.UserID, msg); err != nil {
			s.logger.WithFields(logrus.Fields{"member_id": resp.MemberID, "user_id": resp.Member.UserID}).
				WithError(err).Warn("Failed to send reminder")
		}
	}
	return nil
}

// Close finalizes today's run: remaining PENDING/IN_PROGRESS responses
// become MISSING, the run is marked CLOSED, and delivery jobs are enqueued.
// Closing is the sole trigger for delivery. Closing twice is an error, not
// a no-op.
func (s *RunService) Close(ctx context.Context, workspaceID string) error {
	cfg, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if err == idb.ErrConfigNotFound {
			return ErrWorkspaceNotConfigured
		}
		return fmt.Errorf("loading workspace config: %w", err)
	}

	run, err := s.standupRepo.GetRun(ctx, workspaceID, s.today(cfg.Timezone))
	if err != nil {
		if err == idb.ErrRunNotFound {
			return ErrNoRunToday
		}
		return fmt.Errorf("loading today's run: %w", err)
	}
	if run.Status != standup.RunOpen {
		return ErrRunAlreadyClosed
	}

	missed, err := s.standupRepo.MarkMissing(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("marking missing responses: %w", err)
	}

	closedAt := s.Now()
	if err := s.standupRepo.CloseRun(ctx, run.ID, closedAt); err != nil {
		return fmt.Errorf("closing run: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"run_id":       run.ID,
		"missing":      missed,
	}).Info("Standup run closed")

	if err := s.delivery.Enqueue(ctx, workspaceID, run.ID); err != nil {
		return fmt.Errorf("enqueueing deliveries: %w", err)
	}
	return nil
}

// today is the current calendar day in the workspace's zone, with the time
// component zeroed in UTC for stable storage keys.
func (s *RunService) today(timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	now := s.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
