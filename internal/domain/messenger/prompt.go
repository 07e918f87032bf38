package messenger

import (
	"fmt"
	"strings"

	"standup_bot/internal/domain/standup"
)

// StepMessage builds the outbound prompt for the session's current step,
// including navigation buttons. Both platform adapters render from this so
// the wizard reads identically on Discord and Telegram.
func StepMessage(session *standup.Session) Message {
	if session.CurrentStep == standup.StepConfirm {
		return confirmMessage(session)
	}

	step, ok := standup.StepByKey(session.CurrentStep)
	if !ok {
		// Unknown persisted step; restart the wizard from the top.
		step, _ = standup.StepByKey(standup.FirstStep())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d: %s\n", standup.StepPosition(step.Key)+1, len(standup.Steps), step.Title)

	answer := session.Answers[step.Key]
	fmt.Fprintf(&b, "Current answer: %s\n", renderAnswer(step, answer))

	switch step.Kind {
	case standup.KindList:
		b.WriteString("Reply with an item to add or remove it. Repeating an item removes it.")
	case standup.KindDate:
		b.WriteString("Reply with a date: YYYY-MM-DD, DD/MM/YYYY, \"next monday\", or \"this fri\".")
	case standup.KindSelect:
		fmt.Fprintf(&b, "Reply with one of: %s.", strings.Join(step.Options, ", "))
	default:
		b.WriteString("Reply with your answer.")
	}

	return Message{Text: b.String(), Buttons: stepButtons(step.Key)}
}

func stepButtons(key standup.StepKey) []Button {
	buttons := []Button{
		{Label: "Nil", Command: Command{Action: ActionNil, Step: key}},
	}
	if key != standup.FirstStep() {
		buttons = append(buttons, Button{Label: "Back", Command: Command{Action: ActionBack, Step: key}})
	}
	buttons = append(buttons, Button{Label: "Next", Command: Command{Action: ActionNext, Step: key}})
	return buttons
}

func confirmMessage(session *standup.Session) Message {
	var b strings.Builder
	b.WriteString("Review your standup:\n\n")
	for _, step := range standup.Steps {
		fmt.Fprintf(&b, "%s\n%s\n\n", step.Title, renderAnswer(step, session.Answers[step.Key]))
	}
	b.WriteString("Submit when ready, or go back to edit.")

	return Message{
		Text: b.String(),
		Buttons: []Button{
			{Label: "Back", Command: Command{Action: ActionBack, Step: standup.StepConfirm}},
			{Label: "Submit", Command: Command{Action: ActionSubmit}},
		},
	}
}

func renderAnswer(step standup.Step, answer standup.Answer) string {
	switch step.Kind {
	case standup.KindList:
		if len(answer.List) == 0 {
			return "(not answered)"
		}
		if len(answer.List) == 1 && answer.List[0] == standup.NilSentinel {
			return standup.NilSentinel
		}
		lines := make([]string, len(answer.List))
		for i, item := range answer.List {
			lines[i] = "- " + item
		}
		return strings.Join(lines, "\n")
	case standup.KindDate:
		if answer.Date.Raw == "" && answer.Date.IsNil() {
			return "(not answered)"
		}
		return answer.Date.Display()
	default:
		if answer.Text == "" {
			return "(not answered)"
		}
		return answer.Text
	}
}
