// Package publish contains the delivery destination publishers: the chat
// report, the CSV file writer, and the Google Sheets and Notion REST
// clients. All of them render from the same tabular shaping so a run reads
// identically everywhere.
package publish

import (
	"fmt"
	"strings"

	"standup_bot/internal/domain/standup"
)

const dateLayout = "2006-01-02"

// Header returns the CSV/spreadsheet column names: run metadata first, then
// one column per question in flow order.
func Header() []string {
	header := []string{"date", "member", "status"}
	for _, step := range standup.Steps {
		header = append(header, string(step.Key))
	}
	return header
}

// Row renders one response as a table row. Question cells are filled only
// for submitted responses; for everyone else the status column tells the
// story.
func Row(run *standup.Run, resp *standup.Response) []string {
	name := ""
	if resp.Member != nil {
		name = resp.Member.DisplayName
	}
	row := []string{run.RunDate.Format(dateLayout), name, string(resp.Status)}

	for _, step := range standup.Steps {
		if resp.Status != standup.StatusSubmitted {
			row = append(row, "")
			continue
		}
		row = append(row, cellValue(step, resp.Session.Answers[step.Key]))
	}
	return row
}

func cellValue(step standup.Step, answer standup.Answer) string {
	switch step.Kind {
	case standup.KindList:
		return strings.Join(answer.List, "; ")
	case standup.KindDate:
		if answer.Date.Raw == "" && answer.Date.IsNil() {
			return ""
		}
		return answer.Date.Display()
	default:
		return answer.Text
	}
}

// ChatReport renders the run summary posted to the report channel. Submitted
// responses show their answered questions; unanswered and Nil entries are
// left out to keep the report scannable. Everyone else appears in a roll
// call with their status.
func ChatReport(run *standup.Run, responses []*standup.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Standup for %s\n", run.RunDate.Format(dateLayout))

	var absent []string
	for _, resp := range responses {
		name := ""
		if resp.Member != nil {
			name = resp.Member.DisplayName
		}
		if resp.Status != standup.StatusSubmitted {
			absent = append(absent, fmt.Sprintf("%s (%s)", name, strings.ToLower(string(resp.Status))))
			continue
		}

		fmt.Fprintf(&b, "\n%s\n", name)
		for _, step := range standup.Steps {
			value := chatValue(step, resp.Session.Answers[step.Key])
			if value == "" {
				continue
			}
			fmt.Fprintf(&b, "  %s %s\n", step.Title, value)
		}
	}

	if len(absent) > 0 {
		fmt.Fprintf(&b, "\nNot submitted: %s\n", strings.Join(absent, ", "))
	}
	return b.String()
}

// chatValue renders an answer for the chat report, or "" when the answer is
// empty or explicitly Nil.
func chatValue(step standup.Step, answer standup.Answer) string {
	switch step.Kind {
	case standup.KindList:
		if len(answer.List) == 0 {
			return ""
		}
		if len(answer.List) == 1 && answer.List[0] == standup.NilSentinel {
			return ""
		}
		return strings.Join(answer.List, "; ")
	case standup.KindDate:
		if answer.Date.IsNil() {
			return ""
		}
		return answer.Date.Display()
	default:
		if answer.Text == "" || strings.EqualFold(answer.Text, "nil") {
			return ""
		}
		return answer.Text
	}
}
