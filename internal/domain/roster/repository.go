package roster

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving roster
// members and their excusals.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id int64) (*Member, error)
	GetByUserID(ctx context.Context, workspaceID, userID string) (*Member, error)
	Update(ctx context.Context, m *Member) error // handles DisplayName and IsActive changes
	ListActive(ctx context.Context, workspaceID string) ([]*Member, error)
	ListAll(ctx context.Context, workspaceID string) ([]*Member, error)

	AddExcusal(ctx context.Context, e *Excusal) error
	RemoveExcusal(ctx context.Context, memberID int64, coveringDate time.Time) (int64, error)
	ListExcusalsByMember(ctx context.Context, memberID int64) ([]*Excusal, error)
	// ListExcusalsByWorkspace returns all excusals for active members of the
	// workspace, used when opening a run to check exemptions in one pass.
	ListExcusalsByWorkspace(ctx context.Context, workspaceID string) ([]*Excusal, error)
	// DeleteExcusalsEndingBefore removes expired excusals during retention
	// cleanup and returns the number deleted.
	DeleteExcusalsEndingBefore(ctx context.Context, workspaceID string, cutoff time.Time) (int64, error)
}
