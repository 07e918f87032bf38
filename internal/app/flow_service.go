package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"standup_bot/internal/dateparse"
	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// FlowService owns the per-user conversational state machine: the current
// step, the partial answer bag, and the transitions between steps. Every
// mutation is persisted to the response row before returning, so sessions
// survive process restarts. Mutations for the same user are serialized
// behind a per-user lock.
type FlowService struct {
	standupRepo   standup.Repository
	rosterRepo    roster.Repository
	workspaceRepo workspace.Repository
	cache         SessionCache
	logger        *logrus.Logger

	locks userLocks

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewFlowService(
	sr standup.Repository,
	rr roster.Repository,
	wr workspace.Repository,
	cache SessionCache,
	logger *logrus.Logger,
) *FlowService {
	return &FlowService{
		standupRepo:   sr,
		rosterRepo:    rr,
		workspaceRepo: wr,
		cache:         cache,
		logger:        logger,
		Now:           time.Now,
	}
}

// CurrentSession resolves the user's in-progress session: the cache first,
// then the most recent persisted PENDING/IN_PROGRESS response of an OPEN
// run. Returns ErrSessionExpired when neither exists.
func (s *FlowService) CurrentSession(ctx context.Context, userID string) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.resolveSession(ctx, userID)
}

// StartOrResume ensures the user has a session for the given response. When
// none exists a fresh one is created at the first step. When one exists and
// the caller intends a fresh start while the session has moved past the
// first step, it is reset ("start over" semantics of re-triggering the
// entry action).
func (s *FlowService) StartOrResume(ctx context.Context, userID string, memberID, runID int64, fresh bool) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil && err != ErrSessionExpired {
		return nil, err
	}

	if session == nil {
		session = &standup.Session{
			UserID:      userID,
			MemberID:    memberID,
			RunID:       runID,
			CurrentStep: standup.FirstStep(),
			Answers:     standup.NewAnswers(),
		}
	} else if fresh && session.CurrentStep != standup.FirstStep() {
		session.CurrentStep = standup.FirstStep()
		session.Answers = standup.NewAnswers()
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordAnswer routes a single raw value through per-type normalization:
// date steps parse the expression in the given timezone, list steps toggle
// the item's membership, select and free-text steps store the literal
// string. Writes against the confirm pseudo-step are silently ignored.
func (s *FlowService) RecordAnswer(ctx context.Context, userID string, step standup.StepKey, value, timezone string) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	meta, ok := standup.StepByKey(step)
	if !ok {
		// confirm (or an unknown key) never pollutes the answer bag
		return session, nil
	}

	switch meta.Kind {
	case standup.KindDate:
		session.Answers[step] = standup.DateAnswer(dateparse.Parse(value, timezone))
	case standup.KindList:
		session.Answers[step] = session.Answers[step].ToggleItem(value)
	default:
		session.Answers[step] = standup.TextAnswer(meta.Kind, value)
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordListAnswer replaces a list step's whole value with the given items
// (the bulk, one-item-per-line input path). Blank items are dropped. For
// non-list steps the items are joined and stored as text.
func (s *FlowService) RecordListAnswer(ctx context.Context, userID string, step standup.StepKey, items []string) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	meta, ok := standup.StepByKey(step)
	if !ok {
		return session, nil
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if meta.Kind == standup.KindList {
		session.Answers[step] = standup.ListAnswer(cleaned)
	} else {
		session.Answers[step] = standup.TextAnswer(meta.Kind, strings.Join(cleaned, "\n"))
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// MarkNil applies the "mark nil" affordance: list steps get the single
// element sentinel list, date steps an unresolved nil date, the rest the
// literal NIL string.
func (s *FlowService) MarkNil(ctx context.Context, userID string, step standup.StepKey) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	meta, ok := standup.StepByKey(step)
	if !ok {
		return session, nil
	}

	switch meta.Kind {
	case standup.KindList:
		session.Answers[step] = standup.NilListAnswer()
	case standup.KindDate:
		session.Answers[step] = standup.DateAnswer(dateparse.ParsedDate{Raw: standup.NilSentinel})
	default:
		session.Answers[step] = standup.TextAnswer(meta.Kind, "NIL")
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Advance moves the session one step forward. Advancing past the last
// question lands on confirm.
func (s *FlowService) Advance(ctx context.Context, userID string) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	session.CurrentStep = standup.NextStep(session.CurrentStep)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Retreat moves the session one step back, clamped at the first question.
func (s *FlowService) Retreat(ctx context.Context, userID string) (*standup.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	session.CurrentStep = standup.PrevStep(session.CurrentStep)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit finalizes the session: the response row gets the full answer bag,
// status SUBMITTED and a submission timestamp, and the session leaves the
// cache. Without an active session this fails with ErrSessionExpired and
// writes nothing.
func (s *FlowService) Submit(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.resolveSession(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.standupRepo.SubmitResponse(ctx, session.RunID, session.MemberID, session.Answers, s.Now()); err != nil {
		return fmt.Errorf("submitting response for user %s: %w", userID, err)
	}

	s.cache.Delete(ctx, userID)
	s.logger.WithFields(logrus.Fields{"user_id": userID, "run_id": session.RunID}).Info("Standup submitted")
	return nil
}

// WorkspaceTimezone resolves the configured timezone for the member's
// workspace, defaulting to UTC. Used by platform adapters when recording
// date answers.
func (s *FlowService) WorkspaceTimezone(ctx context.Context, memberID int64) string {
	member, err := s.rosterRepo.GetByID(ctx, memberID)
	if err != nil {
		return "utc"
	}
	cfg, err := s.workspaceRepo.Get(ctx, member.WorkspaceID)
	if err != nil || cfg.Timezone == "" {
		return "utc"
	}
	return cfg.Timezone
}

func (s *FlowService) resolveSession(ctx context.Context, userID string) (*standup.Session, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	resp, err := s.standupRepo.FindActiveResponseByUser(ctx, userID)
	if err != nil {
		if err == idb.ErrResponseNotFound {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("loading persisted session for user %s: %w", userID, err)
	}

	session := &standup.Session{
		UserID:      userID,
		MemberID:    resp.MemberID,
		RunID:       resp.RunID,
		CurrentStep: resp.Session.CurrentStep,
		Answers:     resp.Session.Answers,
	}
	if session.CurrentStep == "" {
		session.CurrentStep = standup.FirstStep()
	}
	if session.Answers == nil {
		session.Answers = standup.NewAnswers()
	}

	s.cache.Put(ctx, userID, session)
	return session, nil
}

// persist writes the whole session to the response row and refreshes the
// cache. Called after every mutation; this is what makes sessions resumable.
func (s *FlowService) persist(ctx context.Context, session *standup.Session) error {
	if err := s.standupRepo.SaveSession(ctx, session.RunID, session.MemberID, session.State()); err != nil {
		return fmt.Errorf("persisting session for user %s: %w", session.UserID, err)
	}
	s.cache.Put(ctx, session.UserID, session)
	return nil
}

// userLocks serializes flow mutations per user so two concurrent events for
// the same user can never interleave into a half-applied answer bag.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	userMu, ok := l.locks[userID]
	if !ok {
		userMu = &sync.Mutex{}
		l.locks[userID] = userMu
	}
	l.mu.Unlock()

	userMu.Lock()
	return userMu.Unlock
}
