package workspace

import "context"

// Repository defines persistence operations for workspace configuration.
type Repository interface {
	Get(ctx context.Context, workspaceID string) (*Config, error)
	Upsert(ctx context.Context, cfg *Config) error
	ListAll(ctx context.Context) ([]*Config, error)
}
