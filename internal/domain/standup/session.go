package standup

// Session is the live conversational state for a user mid-flow. It mirrors
// what SessionState persists, plus the identities needed to write it back.
// Sessions are cached for latency only; the persisted response row is the
// source of truth and sessions rehydrate from it after a restart.
type Session struct {
	UserID      string
	MemberID    int64
	RunID       int64
	CurrentStep StepKey
	Answers     Answers
}

// State extracts the persistable portion of the session.
func (s *Session) State() SessionState {
	return SessionState{CurrentStep: s.CurrentStep, Answers: s.Answers}
}
