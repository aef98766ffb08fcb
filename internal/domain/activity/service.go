package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultListLimit caps GetRecentActivity when the caller sets no limit.
const DefaultListLimit = 50

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, tenantID string, entry *ActivityEntry) error {
	if entry == nil || !entry.ActivityType.Valid() {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Log(ctx, tenantID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists activity entries, newest first.
func (s *Service) GetRecentActivity(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.ActivityType != nil && !opts.ActivityType.Valid() {
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, *opts.ActivityType)
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, ErrInvalidInput
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultListLimit
	}
	entries, err := s.repo.List(ctx, tenantID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// Record logs entry on repo and swallows failures. Domain services use it so
// an audit write never fails the operation that caused it.
func Record(ctx context.Context, repo Logger, logger *slog.Logger, tenantID string, entry *ActivityEntry) {
	if repo == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := repo.Log(ctx, tenantID, entry); err != nil && logger != nil {
		logger.Warn("activity log failed", "type", entry.ActivityType, "error", err)
	}
}
