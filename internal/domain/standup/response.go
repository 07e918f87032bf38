package standup

import (
	"database/sql"
	"time"

	"standup_bot/internal/domain/roster"
)

// ResponseStatus is the state of one member's answer-set within a run.
type ResponseStatus string

const (
	StatusPending    ResponseStatus = "PENDING"
	StatusInProgress ResponseStatus = "IN_PROGRESS"
	StatusSubmitted  ResponseStatus = "SUBMITTED"
	StatusExcused    ResponseStatus = "EXCUSED"
	StatusMissing    ResponseStatus = "MISSING"
	StatusDMFailed   ResponseStatus = "DM_FAILED"
)

// Terminal reports whether the status can no longer move through the flow.
// MISSING is assignable only at run close, EXCUSED and SUBMITTED never
// regress, and DM_FAILED is retried only by an operator re-running open.
func (s ResponseStatus) Terminal() bool {
	switch s {
	case StatusSubmitted, StatusExcused, StatusMissing:
		return true
	}
	return false
}

// SessionState is the JSON blob persisted on a response row: the member's
// current step plus the full answer bag. Piggybacking the session on the
// response row (rather than a separate table) is what makes the flow
// resumable across restarts.
type SessionState struct {
	CurrentStep StepKey `json:"current_step"`
	Answers     Answers `json:"answers"`
}

// Response is one member's answer-set within one run. Exactly one exists per
// (run, member). Corresponds to the 'standup_responses' table.
type Response struct {
	ID          int64
	RunID       int64
	MemberID    int64
	Status      ResponseStatus
	Session     SessionState
	SubmittedAt sql.NullTime
	DMError     sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Member is populated by repository reads that join the roster.
	Member *roster.Member
}
