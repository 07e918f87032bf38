package messenger

import (
	"fmt"
	"strconv"
	"strings"

	"standup_bot/internal/domain/standup"
)

// Action is what a flow command asks the state machine to do.
type Action string

const (
	ActionStart    Action = "start"
	ActionContinue Action = "continue"
	ActionNext     Action = "next"
	ActionBack     Action = "back"
	ActionNil      Action = "nil"
	ActionSubmit   Action = "submit"
)

// Command is the decoded form of a flow interaction. Platform adapters encode
// it into whatever identifier their button/callback payloads allow and decode
// it back exactly once at the boundary.
type Command struct {
	Action   Action
	Step     standup.StepKey // set for next/back/nil
	MemberID int64           // set for start/continue
	RunID    int64           // set for start/continue
}

// Encode renders the command in the colon-delimited wire form shared by both
// platform adapters, e.g. "standup:start:12:34".
func (c Command) Encode() string {
	switch c.Action {
	case ActionStart, ActionContinue:
		return fmt.Sprintf("standup:%s:%d:%d", c.Action, c.MemberID, c.RunID)
	case ActionNext, ActionBack, ActionNil:
		return fmt.Sprintf("standup:%s:%s", c.Action, c.Step)
	default:
		return fmt.Sprintf("standup:%s", c.Action)
	}
}

// ParseCommand decodes a wire identifier produced by Encode. ok is false for
// payloads that are not flow commands.
func ParseCommand(raw string) (Command, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || parts[0] != "standup" {
		return Command{}, false
	}

	cmd := Command{Action: Action(parts[1])}
	switch cmd.Action {
	case ActionStart, ActionContinue:
		if len(parts) != 4 {
			return Command{}, false
		}
		memberID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Command{}, false
		}
		runID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return Command{}, false
		}
		cmd.MemberID = memberID
		cmd.RunID = runID
	case ActionNext, ActionBack, ActionNil:
		if len(parts) != 3 {
			return Command{}, false
		}
		cmd.Step = standup.StepKey(parts[2])
	case ActionSubmit:
		if len(parts) != 2 {
			return Command{}, false
		}
	default:
		return Command{}, false
	}
	return cmd, true
}
