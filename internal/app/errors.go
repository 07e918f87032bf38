package app

import "fmt"

// Application-level errors surfaced to callers of the top-level operations.
var (
	ErrSessionExpired         = fmt.Errorf("no active standup session; please start a new standup")
	ErrWorkspaceNotConfigured = fmt.Errorf("workspace is not configured")
	ErrRunNotOpen             = fmt.Errorf("standup run for today is not open")
	ErrNoRunToday             = fmt.Errorf("no standup run found for today")
	ErrRunAlreadyClosed       = fmt.Errorf("standup run is already closed")
	ErrInvalidExcusalRange    = fmt.Errorf("excusal start date is after end date")
	ErrMemberMismatch         = fmt.Errorf("user does not match the roster member for this action")
	ErrInvalidTimezone        = fmt.Errorf("timezone is not a valid IANA zone name")
	ErrInvalidTimeFormat      = fmt.Errorf("time must be in HH:MM format")
	ErrTooManyReminders       = fmt.Errorf("at most 3 reminder times are allowed")
)
