package standup

import (
	"encoding/json"
	"fmt"

	"standup_bot/internal/dateparse"
)

// NilSentinel marks a list answer as explicitly empty, as opposed to not yet
// answered.
const NilSentinel = "Nil"

// Answer is a tagged union over the four answer kinds. Exactly one of the
// value fields is meaningful, selected by Kind.
type Answer struct {
	Kind AnswerKind
	List []string
	Text string
	Date dateparse.ParsedDate
}

// EmptyAnswer returns the zero value for a kind: empty list, empty string,
// or an unset date.
func EmptyAnswer(kind AnswerKind) Answer {
	a := Answer{Kind: kind}
	if kind == KindList {
		a.List = []string{}
	}
	return a
}

// TextAnswer builds a scalar or select answer.
func TextAnswer(kind AnswerKind, value string) Answer {
	return Answer{Kind: kind, Text: value}
}

// ListAnswer builds a list answer from the given items.
func ListAnswer(items []string) Answer {
	if items == nil {
		items = []string{}
	}
	return Answer{Kind: KindList, List: items}
}

// NilListAnswer is the single-element sentinel list meaning "explicitly
// nothing".
func NilListAnswer() Answer {
	return Answer{Kind: KindList, List: []string{NilSentinel}}
}

// DateAnswer wraps a parsed date expression.
func DateAnswer(d dateparse.ParsedDate) Answer {
	return Answer{Kind: KindDate, Date: d}
}

// ToggleItem returns a copy of a list answer with the item's membership
// flipped: present values are removed, novel values appended. Toggling twice
// restores the original contents.
func (a Answer) ToggleItem(item string) Answer {
	out := make([]string, 0, len(a.List)+1)
	found := false
	for _, v := range a.List {
		if v == item {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, item)
	}
	return Answer{Kind: KindList, List: out}
}

// Answers is the full answer bag, keyed by question step. Serialization is
// driven by the static step table so each key round-trips in its natural
// JSON shape (array, string, or {raw, iso} object), and missing keys decode
// to their kind's empty value.
type Answers map[StepKey]Answer

// NewAnswers returns a bag with every question defaulted to empty.
func NewAnswers() Answers {
	out := make(Answers, len(Steps))
	for _, s := range Steps {
		out[s.Key] = EmptyAnswer(s.Kind)
	}
	return out
}

// MarshalJSON encodes each answer by its step's kind.
func (a Answers) MarshalJSON() ([]byte, error) {
	raw := make(map[StepKey]any, len(Steps))
	for _, s := range Steps {
		ans, ok := a[s.Key]
		if !ok {
			ans = EmptyAnswer(s.Kind)
		}
		switch s.Kind {
		case KindList:
			if ans.List == nil {
				raw[s.Key] = []string{}
			} else {
				raw[s.Key] = ans.List
			}
		case KindDate:
			raw[s.Key] = ans.Date
		default:
			raw[s.Key] = ans.Text
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the bag, defaulting any missing or malformed field
// to its kind's empty value so sessions persisted by older versions still
// rehydrate.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[StepKey]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding answer bag: %w", err)
	}

	out := make(Answers, len(Steps))
	for _, s := range Steps {
		ans := EmptyAnswer(s.Kind)
		if field, ok := raw[s.Key]; ok {
			switch s.Kind {
			case KindList:
				var items []string
				if err := json.Unmarshal(field, &items); err == nil && items != nil {
					ans.List = items
				}
			case KindDate:
				var d dateparse.ParsedDate
				if err := json.Unmarshal(field, &d); err == nil {
					ans.Date = d
				}
			default:
				var text string
				if err := json.Unmarshal(field, &text); err == nil {
					ans.Text = text
				}
			}
		}
		out[s.Key] = ans
	}
	*a = out
	return nil
}

// Clone returns a deep copy of the bag.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if v.List != nil {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}
