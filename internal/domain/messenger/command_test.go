package messenger

import (
	"testing"

	"standup_bot/internal/domain/standup"
)

func TestCommandEncodeParseRoundTrip(t *testing.T) {
	cases := []Command{
		{Action: ActionStart, MemberID: 12, RunID: 34},
		{Action: ActionContinue, MemberID: 7, RunID: 9},
		{Action: ActionNext, Step: standup.StepAppetite},
		{Action: ActionBack, Step: standup.StepNotes},
		{Action: ActionNil, Step: standup.StepStartDate},
		{Action: ActionSubmit},
	}

	for _, cmd := range cases {
		encoded := cmd.Encode()
		decoded, ok := ParseCommand(encoded)
		if !ok {
			t.Errorf("ParseCommand(%q): not recognized", encoded)
			continue
		}
		if decoded != cmd {
			t.Errorf("round trip %q: got %+v, want %+v", encoded, decoded, cmd)
		}
	}
}

func TestCommandEncodeWireForm(t *testing.T) {
	cmd := Command{Action: ActionStart, MemberID: 12, RunID: 34}
	if got := cmd.Encode(); got != "standup:start:12:34" {
		t.Errorf("Encode() = %q", got)
	}
	cmd = Command{Action: ActionNext, Step: standup.StepAppetite}
	if got := cmd.Encode(); got != "standup:next:appetite" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestParseCommandRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"standup",
		"other:start:1:2",
		"standup:start:1",
		"standup:start:x:2",
		"standup:next",
		"standup:submit:extra",
		"standup:unknown",
	}

	for _, raw := range bad {
		if _, ok := ParseCommand(raw); ok {
			t.Errorf("ParseCommand(%q): expected rejection", raw)
		}
	}
}
