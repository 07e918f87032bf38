package app

import (
	"context"

	"standup_bot/internal/domain/standup"
)

// SessionCache holds live flow sessions for latency. It is advisory only:
// every mutation is persisted to the response row, and a miss here falls
// back to rehydrating from storage. Implementations live in
// internal/infra/sessioncache.
type SessionCache interface {
	Get(ctx context.Context, userID string) (*standup.Session, bool)
	Put(ctx context.Context, userID string, session *standup.Session)
	Delete(ctx context.Context, userID string)
}
