package delivery

import (
	"context"

	"standup_bot/internal/domain/standup"
)

// Publisher delivers a closed run's report to one destination. Publishing is
// retried by the job engine, so implementations must tolerate re-runs after
// a partial failure without duplicating visible output (clear-then-rewrite
// rather than append).
type Publisher interface {
	// Publish delivers the report and returns a destination URL or file path
	// when one exists.
	Publish(ctx context.Context, run *standup.Run, responses []*standup.Response) (string, error)
}
