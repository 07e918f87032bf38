package scheduler

import (
	"context"
	"testing"
	"time"

	"standup_bot/internal/domain/workspace"

	"github.com/sirupsen/logrus"
)

type stubWorkspaceRepo struct {
	configs []*workspace.Config
}

func (r *stubWorkspaceRepo) Get(context.Context, string) (*workspace.Config, error) {
	return nil, nil
}

func (r *stubWorkspaceRepo) Upsert(context.Context, *workspace.Config) error {
	return nil
}

func (r *stubWorkspaceRepo) ListAll(context.Context) ([]*workspace.Config, error) {
	return r.configs, nil
}

type recordingRunner struct {
	opened   []string
	reminded []string
	closed   []string
}

func (r *recordingRunner) Open(_ context.Context, workspaceID string) error {
	r.opened = append(r.opened, workspaceID)
	return nil
}

func (r *recordingRunner) Remind(_ context.Context, workspaceID string) error {
	r.reminded = append(r.reminded, workspaceID)
	return nil
}

func (r *recordingRunner) Close(_ context.Context, workspaceID string) error {
	r.closed = append(r.closed, workspaceID)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestScheduler(configs ...*workspace.Config) (*StandupScheduler, *recordingRunner) {
	runner := &recordingRunner{}
	s := NewStandupScheduler(
		&stubWorkspaceRepo{configs: configs},
		runner,
		nil,
		nil,
		quietLogger(),
		"* * * * *",
		"* * * * *",
		"0 2 * * *",
	)
	return s, runner
}

func utcConfig(id, open, close string, reminders ...string) *workspace.Config {
	return &workspace.Config{
		WorkspaceID:     id,
		Timezone:        "UTC",
		WindowOpenTime:  open,
		WindowCloseTime: close,
		ReminderTimes:   reminders,
	}
}

func TestStandupTickMatchesExactMinute(t *testing.T) {
	s, runner := newTestScheduler(utcConfig("ws1", "09:00", "17:00", "13:00"))
	ctx := context.Background()

	s.StandupTick(ctx, time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC))
	if len(runner.opened) != 1 || runner.opened[0] != "ws1" {
		t.Errorf("opened = %v, want [ws1]", runner.opened)
	}

	s.StandupTick(ctx, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC))
	if len(runner.reminded) != 1 {
		t.Errorf("reminded = %v, want one reminder", runner.reminded)
	}

	s.StandupTick(ctx, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC))
	if len(runner.closed) != 1 {
		t.Errorf("closed = %v, want [ws1]", runner.closed)
	}

	s.StandupTick(ctx, time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("a non-matching minute triggered open: %v", runner.opened)
	}
}

func TestStandupTickConvertsToWorkspaceZone(t *testing.T) {
	cfg := utcConfig("ws-ny", "09:00", "17:00")
	cfg.Timezone = "America/New_York"
	s, runner := newTestScheduler(cfg)

	// 14:00 UTC is 09:00 in New York during EST.
	s.StandupTick(context.Background(), time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("opened = %v, want the EST-local open", runner.opened)
	}

	s.StandupTick(context.Background(), time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("UTC 09:00 triggered an EST workspace: %v", runner.opened)
	}
}

func TestStandupTickEvaluatesEachWorkspace(t *testing.T) {
	s, runner := newTestScheduler(
		utcConfig("ws1", "09:00", "17:00"),
		utcConfig("ws2", "09:00", "18:00"),
		utcConfig("ws3", "10:00", "17:00"),
	)

	s.StandupTick(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if len(runner.opened) != 2 {
		t.Errorf("opened = %v, want ws1 and ws2", runner.opened)
	}
}

func TestStandupTickSkipsInvalidTimezone(t *testing.T) {
	cfg := utcConfig("ws-bad", "09:00", "17:00")
	cfg.Timezone = "Not/AZone"
	s, runner := newTestScheduler(cfg, utcConfig("ws-good", "09:00", "17:00"))

	s.StandupTick(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 || runner.opened[0] != "ws-good" {
		t.Errorf("opened = %v, want only ws-good", runner.opened)
	}
}

func TestStandupTickSkipsWeekends(t *testing.T) {
	s, runner := newTestScheduler(utcConfig("ws1", "09:00", "17:00", "13:00"))
	ctx := context.Background()

	// 2026-03-07 is a Saturday, 2026-03-08 a Sunday.
	s.StandupTick(ctx, time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC))
	s.StandupTick(ctx, time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC))
	s.StandupTick(ctx, time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC))
	s.StandupTick(ctx, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC))

	if len(runner.opened) != 0 {
		t.Errorf("opened on a weekend: %v", runner.opened)
	}
	if len(runner.reminded) != 0 {
		t.Errorf("reminded on a weekend: %v", runner.reminded)
	}
	if len(runner.closed) != 0 {
		t.Errorf("closed on a weekend: %v", runner.closed)
	}
}

func TestWeekendIsJudgedInWorkspaceZone(t *testing.T) {
	cfg := utcConfig("ws-nz", "09:00", "17:00")
	cfg.Timezone = "Pacific/Auckland"
	s, runner := newTestScheduler(cfg)

	// Sunday 20:00 UTC is already Monday 09:00 in Auckland (UTC+13).
	s.StandupTick(context.Background(), time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("opened = %v, want the Auckland Monday open", runner.opened)
	}

	// Friday 20:00 UTC is Saturday morning in Auckland.
	s.StandupTick(context.Background(), time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("opened on an Auckland Saturday: %v", runner.opened)
	}
}

func TestOpenTakesPrecedenceOverReminderAtSameMinute(t *testing.T) {
	s, runner := newTestScheduler(utcConfig("ws1", "09:00", "17:00", "09:00"))

	s.StandupTick(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if len(runner.opened) != 1 {
		t.Errorf("opened = %v", runner.opened)
	}
	if len(runner.reminded) != 0 {
		t.Errorf("reminder fired alongside open: %v", runner.reminded)
	}
}
