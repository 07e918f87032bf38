package delivery

import (
	"database/sql"
	"time"
)

// Destination is a delivery target for a completed run's report.
type Destination string

const (
	DestinationDiscord Destination = "DISCORD"
	DestinationSheets  Destination = "SHEETS"
	DestinationNotion  Destination = "NOTION"
	DestinationCSV     Destination = "CSV"
)

// JobStatus is the state of one delivery attempt-stream.
type JobStatus string

const (
	JobPending  JobStatus = "PENDING"
	JobRetrying JobStatus = "RETRYING"
	JobSuccess  JobStatus = "SUCCESS"
	JobFailed   JobStatus = "FAILED"
)

// Job is one delivery attempt-stream targeting one destination for one run.
// Attempt count only increases; the only allowed status regression is the
// operator-initiated resend (FAILED/RETRYING -> PENDING with the count
// reset). Corresponds to the 'delivery_jobs' table.
type Job struct {
	ID            int64
	RunID         int64
	Destination   Destination
	Status        JobStatus
	AttemptCount  int
	NextAttemptAt time.Time
	LastError     sql.NullString
	CompletedAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BackoffSchedule is the retry ladder in minutes. The index clamps at the
// final entry once attempts exceed the table length.
var BackoffSchedule = []int{1, 5, 15, 60, 360, 1440}

// MaxAttempts is the ceiling after which a job is terminally FAILED.
const MaxAttempts = 8

// Backoff returns the wait before the next attempt, indexed by the attempt
// count prior to the failure.
func Backoff(attemptCount int) time.Duration {
	idx := attemptCount
	if idx >= len(BackoffSchedule) {
		idx = len(BackoffSchedule) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return time.Duration(BackoffSchedule[idx]) * time.Minute
}
