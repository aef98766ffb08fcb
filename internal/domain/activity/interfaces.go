package activity

import "context"

// Logger appends activity entries. Domain services depend on this slice of
// the repository only.
type Logger interface {
	Log(ctx context.Context, tenantID string, entry *ActivityEntry) error
}

// Repository provides persistence operations for activity entries.
type Repository interface {
	Logger
	List(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error)
}
