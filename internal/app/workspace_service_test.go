package app

import (
	"context"
	"testing"

	"standup_bot/internal/domain/workspace"
)

func validConfig() *workspace.Config {
	return &workspace.Config{
		WorkspaceID:     "ws1",
		Timezone:        "Europe/Berlin",
		WindowOpenTime:  "09:00",
		WindowCloseTime: "17:00",
		ReminderTimes:   []string{"12:00", "15:30"},
	}
}

func TestSetupValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*workspace.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*workspace.Config) {}},
		{name: "bad timezone", mutate: func(c *workspace.Config) { c.Timezone = "Mars/Olympus" }, wantErr: ErrInvalidTimezone},
		{name: "bad open time", mutate: func(c *workspace.Config) { c.WindowOpenTime = "9am" }, wantErr: ErrInvalidTimeFormat},
		{name: "bad reminder", mutate: func(c *workspace.Config) { c.ReminderTimes = []string{"noonish"} }, wantErr: ErrInvalidTimeFormat},
		{name: "too many reminders", mutate: func(c *workspace.Config) {
			c.ReminderTimes = []string{"10:00", "11:00", "12:00", "13:00"}
		}, wantErr: ErrTooManyReminders},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewWorkspaceService(newFakeWorkspaceRepo())
			cfg := validConfig()
			tc.mutate(cfg)
			if err := svc.Setup(context.Background(), cfg); err != tc.wantErr {
				t.Errorf("Setup = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetUnconfiguredWorkspace(t *testing.T) {
	svc := NewWorkspaceService(newFakeWorkspaceRepo())
	if _, err := svc.Get(context.Background(), "ws1"); err != ErrWorkspaceNotConfigured {
		t.Errorf("Get = %v, want ErrWorkspaceNotConfigured", err)
	}
}

func TestUpdateMutatesAndRevalidates(t *testing.T) {
	svc := NewWorkspaceService(newFakeWorkspaceRepo())
	ctx := context.Background()

	if err := svc.Setup(ctx, validConfig()); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	updated, err := svc.Update(ctx, "ws1", func(c *workspace.Config) {
		c.ReportChannelID = "chan-9"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ReportChannelID != "chan-9" {
		t.Errorf("ReportChannelID = %q", updated.ReportChannelID)
	}
	if updated.Timezone != "Europe/Berlin" {
		t.Errorf("untouched field changed: %q", updated.Timezone)
	}

	if _, err := svc.Update(ctx, "ws1", func(c *workspace.Config) {
		c.WindowCloseTime = "25:99"
	}); err != ErrInvalidTimeFormat {
		t.Errorf("invalid update = %v, want ErrInvalidTimeFormat", err)
	}
}
