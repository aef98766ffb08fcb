package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/repository"
)

// Service handles note operations.
type Service struct {
	repo       Repository
	activities activity.Logger
	logger     *slog.Logger
}

// NewService creates a new note service. activities may be nil.
func NewService(repo Repository, activities activity.Logger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, activities: activities, logger: logger}
}

// CreateRequest defines note creation inputs.
type CreateRequest struct {
	Path  string
	Title string
	Tags  []string
}

// Create creates a new note.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Note, error) {
	p, err := CleanPath(req.Path)
	if err != nil {
		return nil, err
	}
	if err := card.ValidateTags(req.Tags); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}

	n := &Note{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Path:      p,
		Title:     title,
		Tags:      card.NormalizeTags(req.Tags),
		CreatedAt: time.Now().UTC().Round(0),
	}

	if err := s.repo.Create(ctx, tenantID, n); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePath
		}
		return nil, fmt.Errorf("creating note: %w", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		NoteID:       &n.ID,
		ActivityType: activity.TypeNoteCreated,
		Summary:      fmt.Sprintf("created note %s", n.Path),
		CreatedAt:    n.CreatedAt,
	})
	return n, nil
}

// Get fetches a note by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Note, error) {
	n, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("getting note: %w", err)
	}
	return n, nil
}

// GetByPath fetches a note by its path.
func (s *Service) GetByPath(ctx context.Context, tenantID, notePath string) (*Note, error) {
	p, err := CleanPath(notePath)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.GetByPath(ctx, tenantID, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("getting note by path: %w", err)
	}
	return n, nil
}

// GetOrCreateByPath returns the note at path, creating it if missing.
func (s *Service) GetOrCreateByPath(ctx context.Context, tenantID, notePath string) (*Note, error) {
	n, err := s.GetByPath(ctx, tenantID, notePath)
	if err == nil || !errors.Is(err, ErrNoteNotFound) {
		return n, err
	}

	n, err = s.Create(ctx, tenantID, CreateRequest{Path: notePath})
	if errors.Is(err, ErrDuplicatePath) {
		// Lost a race with another creator.
		return s.GetByPath(ctx, tenantID, notePath)
	}
	return n, err
}

// GetDefault returns the inbox note, creating it if missing.
func (s *Service) GetDefault(ctx context.Context, tenantID string) (*Note, error) {
	return s.GetOrCreateByPath(ctx, tenantID, DefaultPath)
}

// List returns note summaries with due counts as of now.
func (s *Service) List(ctx context.Context, tenantID string, now time.Time) ([]NoteSummary, error) {
	if now.IsZero() {
		now = time.Now()
	}
	summaries, err := s.repo.List(ctx, tenantID, now.UTC().Round(0))
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return summaries, nil
}

// Delete removes a note, its cards and their scheduling history.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	n, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("deleting note: %w", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		ActivityType: activity.TypeNoteDeleted,
		Summary:      fmt.Sprintf("deleted note %s", n.Path),
	})
	return nil
}

// CleanPath normalises a note path to slash-separated, relative form.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidInput)
	}
	return p, nil
}
