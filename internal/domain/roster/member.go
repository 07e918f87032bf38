package roster

import (
	"time"
)

// Member represents a participant eligible for standups in one workspace.
// Corresponds to the 'roster_members' table.
type Member struct {
	ID          int64
	WorkspaceID string // chat platform workspace (guild) identifier
	UserID      string // platform user identifier
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Excusal is a date range during which a member is exempt from standups.
// Both bounds are whole calendar days, inclusive.
type Excusal struct {
	ID        int64
	MemberID  int64
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	CreatedAt time.Time
}

// Covers reports whether the given calendar day falls inside the excusal
// range. Comparison is at whole-day granularity.
func (e *Excusal) Covers(day time.Time) bool {
	d := dateOnly(day)
	return !d.Before(dateOnly(e.StartDate)) && !d.After(dateOnly(e.EndDate))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
