package standup

import (
	"database/sql"
	"time"
)

// RunStatus is the lifecycle state of a standup run.
type RunStatus string

const (
	RunOpen   RunStatus = "OPEN"
	RunClosed RunStatus = "CLOSED"
)

// Run is one calendar day's collection cycle for one workspace. At most one
// run exists per (workspace, run date); the transition OPEN -> CLOSED happens
// exactly once. Corresponds to the 'standup_runs' table.
type Run struct {
	ID          int64
	WorkspaceID string
	RunDate     time.Time // calendar day, time component zeroed
	Status      RunStatus
	ClosedAt    sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
