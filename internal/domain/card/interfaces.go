package card

import (
	"context"
	"time"

	"github.com/rpggio/spacer/internal/scheduler"
)

// Repository provides persistence for cards and their scheduling state.
type Repository interface {
	Create(ctx context.Context, tenantID string, c *Card) error
	Get(ctx context.Context, tenantID, id string) (*Card, error)
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string, opts ListOptions) ([]CardRef, error)
	// UpdateState stores state if the card is still at expectedVersion,
	// appending only rating history entries not yet persisted.
	UpdateState(ctx context.Context, tenantID, id string, state scheduler.CardState, modifiedAt time.Time, expectedVersion int64) error
	// Put inserts or replaces a card including its full history.
	Put(ctx context.Context, tenantID string, c *Card) error
	// ForeignIDs returns which of ids belong to a tenant other than tenantID.
	ForeignIDs(ctx context.Context, tenantID string, ids []string) ([]string, error)
	ListDue(ctx context.Context, tenantID string, now time.Time, opts ListOptions) ([]CardRef, error)
	ListScheduled(ctx context.Context, tenantID string, now time.Time, opts ListOptions) ([]CardRef, error)
	ListNew(ctx context.Context, tenantID string, opts ListOptions) ([]CardRef, error)
	// NextReviewDates returns next review dates of active cards before until.
	NextReviewDates(ctx context.Context, tenantID string, until time.Time) ([]time.Time, error)
}
