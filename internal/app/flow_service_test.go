package app

import (
	"context"
	"testing"
	"time"

	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
)

type flowFixture struct {
	standupRepo   *fakeStandupRepo
	rosterRepo    *fakeRosterRepo
	workspaceRepo *fakeWorkspaceRepo
	cache         *fakeCache
	svc           *FlowService
	member        *roster.Member
	run           *standup.Run
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	rosterRepo := newFakeRosterRepo()
	standupRepo := newFakeStandupRepo(rosterRepo)
	workspaceRepo := newFakeWorkspaceRepo()
	cache := newFakeCache()

	ctx := context.Background()
	if err := workspaceRepo.Upsert(ctx, &workspace.Config{
		WorkspaceID:     "ws1",
		Timezone:        "America/New_York",
		WindowOpenTime:  "09:00",
		WindowCloseTime: "17:00",
	}); err != nil {
		t.Fatalf("seeding workspace config: %v", err)
	}

	member := &roster.Member{WorkspaceID: "ws1", UserID: "u1", DisplayName: "Alice", IsActive: true}
	if err := rosterRepo.Create(ctx, member); err != nil {
		t.Fatalf("seeding roster member: %v", err)
	}

	run := &standup.Run{
		WorkspaceID: "ws1",
		RunDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:      standup.RunOpen,
	}
	if err := standupRepo.UpsertRun(ctx, run); err != nil {
		t.Fatalf("seeding run: %v", err)
	}

	svc := NewFlowService(standupRepo, rosterRepo, workspaceRepo, cache, testLogger())
	svc.Now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	return &flowFixture{
		standupRepo:   standupRepo,
		rosterRepo:    rosterRepo,
		workspaceRepo: workspaceRepo,
		cache:         cache,
		svc:           svc,
		member:        member,
		run:           run,
	}
}

// assertAnswersEmpty checks that every step key holds its kind's empty
// value; the answer bag always carries all keys.
func assertAnswersEmpty(t *testing.T, answers standup.Answers) {
	t.Helper()
	for _, step := range standup.Steps {
		answer, ok := answers[step.Key]
		if !ok {
			t.Errorf("answer bag is missing key %q", step.Key)
			continue
		}
		switch step.Kind {
		case standup.KindList:
			if len(answer.List) != 0 {
				t.Errorf("%q = %v, want an empty list", step.Key, answer.List)
			}
		case standup.KindDate:
			if answer.Date.Raw != "" || answer.Date.ISO != "" {
				t.Errorf("%q = %+v, want an unset date", step.Key, answer.Date)
			}
		default:
			if answer.Text != "" {
				t.Errorf("%q = %q, want empty text", step.Key, answer.Text)
			}
		}
	}
}

func (f *flowFixture) start(t *testing.T) *standup.Session {
	t.Helper()
	session, err := f.svc.StartOrResume(context.Background(), f.member.UserID, f.member.ID, f.run.ID, true)
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	return session
}

func TestStartOrResumeCreatesFreshSession(t *testing.T) {
	f := newFlowFixture(t)
	session := f.start(t)

	if session.CurrentStep != standup.FirstStep() {
		t.Errorf("CurrentStep = %q, want %q", session.CurrentStep, standup.FirstStep())
	}
	assertAnswersEmpty(t, session.Answers)

	resp, err := f.standupRepo.GetResponse(context.Background(), f.run.ID, f.member.ID)
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if resp.Status != standup.StatusInProgress {
		t.Errorf("response status = %q, want %q", resp.Status, standup.StatusInProgress)
	}
	if _, ok := f.cache.Get(context.Background(), f.member.UserID); !ok {
		t.Error("session not cached after start")
	}
}

func TestStartOrResumeFreshResetsProgress(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	if _, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := f.svc.Advance(ctx, "u1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	session, err := f.svc.StartOrResume(ctx, "u1", f.member.ID, f.run.ID, true)
	if err != nil {
		t.Fatalf("StartOrResume fresh: %v", err)
	}
	if session.CurrentStep != standup.FirstStep() {
		t.Errorf("CurrentStep = %q, want reset to %q", session.CurrentStep, standup.FirstStep())
	}
	assertAnswersEmpty(t, session.Answers)
}

func TestStartOrResumeContinueKeepsProgress(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	if _, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := f.svc.Advance(ctx, "u1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	session, err := f.svc.StartOrResume(ctx, "u1", f.member.ID, f.run.ID, false)
	if err != nil {
		t.Fatalf("StartOrResume continue: %v", err)
	}
	if session.CurrentStep != standup.StepAppetite {
		t.Errorf("CurrentStep = %q, want %q", session.CurrentStep, standup.StepAppetite)
	}
	got := session.Answers[standup.StepWhatWorkingOn]
	if len(got.List) != 1 || got.List[0] != "task A" {
		t.Errorf("answer lost on continue: %v", got)
	}
}

func TestRecordAnswerListToggles(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	session, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if got := session.Answers[standup.StepWhatWorkingOn].List; len(got) != 1 || got[0] != "task A" {
		t.Fatalf("after first toggle: %v", got)
	}

	session, err = f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if got := session.Answers[standup.StepWhatWorkingOn].List; len(got) != 0 {
		t.Errorf("after second toggle: %v, want empty", got)
	}
}

func TestRecordAnswerParsesDates(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	session, err := f.svc.RecordAnswer(ctx, "u1", standup.StepStartDate, "2026-03-05", "America/New_York")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	answer := session.Answers[standup.StepStartDate]
	if answer.Kind != standup.KindDate {
		t.Fatalf("Kind = %v, want KindDate", answer.Kind)
	}
	if answer.Date.ISO != "2026-03-05" {
		t.Errorf("ISO = %q, want 2026-03-05", answer.Date.ISO)
	}
	if answer.Date.Raw != "2026-03-05" {
		t.Errorf("Raw = %q, want the literal input", answer.Date.Raw)
	}
}

func TestRecordAnswerIgnoresConfirmStep(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	session, err := f.svc.RecordAnswer(ctx, "u1", standup.StepConfirm, "stray text", "utc")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, ok := session.Answers[standup.StepConfirm]; ok {
		t.Error("confirm pseudo-step recorded an answer")
	}
}

func TestRecordListAnswerReplacesWholeValue(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	if _, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "stale", "utc"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	session, err := f.svc.RecordListAnswer(ctx, "u1", standup.StepWhatWorkingOn, []string{" task A ", "", "task B"})
	if err != nil {
		t.Fatalf("RecordListAnswer: %v", err)
	}
	got := session.Answers[standup.StepWhatWorkingOn].List
	if len(got) != 2 || got[0] != "task A" || got[1] != "task B" {
		t.Errorf("list = %v, want [task A, task B]", got)
	}
}

func TestMarkNilPerKind(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	session, err := f.svc.MarkNil(ctx, "u1", standup.StepWhatWorkingOn)
	if err != nil {
		t.Fatalf("MarkNil list: %v", err)
	}
	if got := session.Answers[standup.StepWhatWorkingOn].List; len(got) != 1 || got[0] != standup.NilSentinel {
		t.Errorf("list nil = %v, want [%s]", got, standup.NilSentinel)
	}

	session, err = f.svc.MarkNil(ctx, "u1", standup.StepStartDate)
	if err != nil {
		t.Fatalf("MarkNil date: %v", err)
	}
	if date := session.Answers[standup.StepStartDate].Date; !date.IsNil() || date.Raw != standup.NilSentinel {
		t.Errorf("date nil = %+v, want unresolved %s", date, standup.NilSentinel)
	}

	session, err = f.svc.MarkNil(ctx, "u1", standup.StepAppetite)
	if err != nil {
		t.Fatalf("MarkNil text: %v", err)
	}
	if got := session.Answers[standup.StepAppetite].Text; got != "NIL" {
		t.Errorf("text nil = %q, want NIL", got)
	}
}

func TestAdvanceLandsOnConfirmAndStays(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	var session *standup.Session
	var err error
	for i := 0; i < len(standup.Steps); i++ {
		session, err = f.svc.Advance(ctx, "u1")
		if err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}
	if session.CurrentStep != standup.StepConfirm {
		t.Fatalf("after walking all steps, CurrentStep = %q, want confirm", session.CurrentStep)
	}

	session, err = f.svc.Advance(ctx, "u1")
	if err != nil {
		t.Fatalf("Advance past confirm: %v", err)
	}
	if session.CurrentStep != standup.StepConfirm {
		t.Errorf("advancing past confirm moved to %q", session.CurrentStep)
	}
}

func TestRetreatClampsAtFirstStep(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	session, err := f.svc.Retreat(ctx, "u1")
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if session.CurrentStep != standup.FirstStep() {
		t.Errorf("retreat at first step moved to %q", session.CurrentStep)
	}
}

func TestSubmitFinalizesResponse(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)

	if _, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := f.svc.Submit(ctx, "u1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp, err := f.standupRepo.GetResponse(ctx, f.run.ID, f.member.ID)
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if resp.Status != standup.StatusSubmitted {
		t.Errorf("status = %q, want %q", resp.Status, standup.StatusSubmitted)
	}
	if !resp.SubmittedAt.Valid || !resp.SubmittedAt.Time.Equal(f.svc.Now()) {
		t.Errorf("SubmittedAt = %+v, want the service clock", resp.SubmittedAt)
	}
	if got := resp.Session.Answers[standup.StepWhatWorkingOn].List; len(got) != 1 || got[0] != "task A" {
		t.Errorf("submitted answers = %v", got)
	}
	if _, ok := f.cache.Get(ctx, "u1"); ok {
		t.Error("session still cached after submit")
	}
}

func TestSubmitWithoutSessionFails(t *testing.T) {
	f := newFlowFixture(t)
	if err := f.svc.Submit(context.Background(), "u1"); err != ErrSessionExpired {
		t.Errorf("Submit without session = %v, want ErrSessionExpired", err)
	}
}

func TestCurrentSessionRehydratesFromStorage(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)
	if _, err := f.svc.RecordAnswer(ctx, "u1", standup.StepWhatWorkingOn, "task A", "utc"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	// Simulate a restart: the cache empties but the response row remains.
	f.cache.sessions = map[string]*standup.Session{}

	session, err := f.svc.CurrentSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CurrentSession after cache loss: %v", err)
	}
	if session.RunID != f.run.ID || session.MemberID != f.member.ID {
		t.Errorf("rehydrated identity = run %d member %d", session.RunID, session.MemberID)
	}
	if got := session.Answers[standup.StepWhatWorkingOn].List; len(got) != 1 || got[0] != "task A" {
		t.Errorf("rehydrated answers = %v", got)
	}
	if _, ok := f.cache.Get(ctx, "u1"); !ok {
		t.Error("rehydrated session not written back to cache")
	}
}

func TestCurrentSessionExpiredWhenRunClosed(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	f.start(t)
	f.cache.sessions = map[string]*standup.Session{}

	if err := f.standupRepo.CloseRun(ctx, f.run.ID, f.svc.Now()); err != nil {
		t.Fatalf("CloseRun: %v", err)
	}

	if _, err := f.svc.CurrentSession(ctx, "u1"); err != ErrSessionExpired {
		t.Errorf("CurrentSession on closed run = %v, want ErrSessionExpired", err)
	}
}

func TestWorkspaceTimezoneFallsBackToUTC(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	if got := f.svc.WorkspaceTimezone(ctx, f.member.ID); got != "America/New_York" {
		t.Errorf("WorkspaceTimezone = %q, want America/New_York", got)
	}
	if got := f.svc.WorkspaceTimezone(ctx, 999); got != "utc" {
		t.Errorf("WorkspaceTimezone for unknown member = %q, want utc", got)
	}
}
