package session

import (
	"context"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
)

// CardService selects and reviews cards on behalf of a session.
type CardService interface {
	Get(ctx context.Context, tenantID, id string) (*card.Card, error)
	Due(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error)
	New(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error)
	SubmitReview(ctx context.Context, tenantID string, req card.SubmitRequest) (*card.Card, error)
	StopScheduling(ctx context.Context, tenantID string, req card.StopRequest) (*card.Card, error)
}

// Repository provides persistence for review sessions.
type Repository interface {
	Create(ctx context.Context, tenantID string, sess *Session) error
	Get(ctx context.Context, tenantID, id string) (*Session, error)
	// Update stores position, counters, status and timestamps. The queue is
	// immutable after Create. A stale sess.Version yields
	// repository.ErrConflict; on success sess.Version is bumped.
	Update(ctx context.Context, tenantID string, sess *Session) error
	ListActive(ctx context.Context, tenantID string) ([]SessionInfo, error)
}
