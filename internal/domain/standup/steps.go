package standup

// StepKey identifies one question in the standup flow.
type StepKey string

const (
	StepWhatWorkingOn     StepKey = "what_working_on"
	StepAppetite          StepKey = "appetite"
	StepStartDate         StepKey = "start_date"
	StepScheduledDoneDate StepKey = "scheduled_done_date"
	StepActualDoneDate    StepKey = "actual_done_date"
	StepProgressToday     StepKey = "progress_today"
	StepExpectations      StepKey = "expectations"
	StepAtRisk            StepKey = "at_risk"
	StepDecisions         StepKey = "decisions"
	StepGoingWell         StepKey = "going_well"
	StepGoingPoorly       StepKey = "going_poorly"
	StepNotes             StepKey = "notes"

	// StepConfirm is the terminal review pseudo-step. It is never an
	// addressable answer key.
	StepConfirm StepKey = "confirm"
)

// AnswerKind is the input type of a question step.
type AnswerKind int

const (
	KindText AnswerKind = iota
	KindList
	KindDate
	KindSelect
)

// Step is the static metadata for one question.
type Step struct {
	Key     StepKey
	Title   string
	Kind    AnswerKind
	Options []string // populated only for KindSelect
}

// Steps is the fixed ordered question sequence. The confirm pseudo-step is
// not part of it; it follows the final entry.
var Steps = []Step{
	{Key: StepWhatWorkingOn, Title: "What are you working on?", Kind: KindList},
	{Key: StepAppetite, Title: "What's the appetite?", Kind: KindText},
	{Key: StepStartDate, Title: "When did it start?", Kind: KindDate},
	{Key: StepScheduledDoneDate, Title: "When scheduled to be done?", Kind: KindDate},
	{Key: StepActualDoneDate, Title: "When actually done?", Kind: KindDate},
	{Key: StepProgressToday, Title: "What progress did you make today?", Kind: KindList},
	{Key: StepExpectations, Title: "What are your expectations vs plan?", Kind: KindSelect, Options: []string{"ABOVE", "AT", "BELOW", "NIL"}},
	{Key: StepAtRisk, Title: "What is at risk?", Kind: KindList},
	{Key: StepDecisions, Title: "What decisions need to be made?", Kind: KindList},
	{Key: StepGoingWell, Title: "What is going well?", Kind: KindList},
	{Key: StepGoingPoorly, Title: "What is going poorly?", Kind: KindList},
	{Key: StepNotes, Title: "Any additional notes?", Kind: KindText},
}

var stepIndex = func() map[StepKey]int {
	idx := make(map[StepKey]int, len(Steps))
	for i, s := range Steps {
		idx[s.Key] = i
	}
	return idx
}()

// FirstStep is where every new session begins.
func FirstStep() StepKey { return Steps[0].Key }

// StepByKey looks up step metadata; ok is false for unknown keys and for
// the confirm pseudo-step.
func StepByKey(key StepKey) (Step, bool) {
	i, ok := stepIndex[key]
	if !ok {
		return Step{}, false
	}
	return Steps[i], true
}

// StepPosition returns the zero-based index of a question step, or -1 for
// confirm/unknown keys.
func StepPosition(key StepKey) int {
	i, ok := stepIndex[key]
	if !ok {
		return -1
	}
	return i
}

// NextStep returns the step after the given one. Advancing past the last
// question lands on confirm; advancing from confirm stays on confirm.
func NextStep(key StepKey) StepKey {
	i, ok := stepIndex[key]
	if !ok || i == len(Steps)-1 {
		return StepConfirm
	}
	return Steps[i+1].Key
}

// PrevStep returns the step before the given one, clamped at the first
// question. Retreating from confirm lands on the last question.
func PrevStep(key StepKey) StepKey {
	if key == StepConfirm {
		return Steps[len(Steps)-1].Key
	}
	i, ok := stepIndex[key]
	if !ok || i == 0 {
		return Steps[0].Key
	}
	return Steps[i-1].Key
}
