package note

import (
	"context"
	"time"
)

// Repository provides persistence for notes.
type Repository interface {
	Create(ctx context.Context, tenantID string, n *Note) error
	Get(ctx context.Context, tenantID, id string) (*Note, error)
	GetByPath(ctx context.Context, tenantID, path string) (*Note, error)
	// List summarises notes with card counts as of now.
	List(ctx context.Context, tenantID string, now time.Time) ([]NoteSummary, error)
	// Delete removes the note together with its cards and their history.
	Delete(ctx context.Context, tenantID, id string) error
}
