package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/scheduler"
)

const filePerms = 0o600

// NoteStore is the slice of the note service an archive needs.
type NoteStore interface {
	List(ctx context.Context, tenantID string, now time.Time) ([]note.NoteSummary, error)
	GetByPath(ctx context.Context, tenantID, path string) (*note.Note, error)
	Create(ctx context.Context, tenantID string, req note.CreateRequest) (*note.Note, error)
}

// CardStore is the slice of the card service an archive needs.
type CardStore interface {
	List(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error)
	Get(ctx context.Context, tenantID, id string) (*card.Card, error)
	Restore(ctx context.Context, tenantID string, req card.RestoreRequest) (*card.Card, error)
	CheckRestore(ctx context.Context, tenantID string, reqs []card.RestoreRequest) error
	Scheduler() *scheduler.Scheduler
}

// Service exports and imports snapshots.
type Service struct {
	notes      NoteStore
	cards      CardStore
	activities activity.Logger
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates an archive service. activities may be nil.
func NewService(notes NoteStore, cards CardStore, activities activity.Logger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		notes:      notes,
		cards:      cards,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// ImportResult counts what an import changed.
type ImportResult struct {
	NotesCreated  int `json:"notes_created"`
	CardsImported int `json:"cards_imported"`
}

// Snapshot builds a document of everything the tenant owns.
func (s *Service) Snapshot(ctx context.Context, tenantID string) (*Document, error) {
	now := s.now().UTC().Round(0)
	summaries, err := s.notes.List(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	doc := &Document{
		Version:    FormatVersion,
		ExportedAt: now,
		Notes:      make([]Note, 0, len(summaries)),
		Cards:      []Card{},
	}
	for _, n := range summaries {
		doc.Notes = append(doc.Notes, Note{
			Path:      n.Path,
			Title:     n.Title,
			Tags:      n.Tags,
			CreatedAt: n.CreatedAt,
		})

		refs, err := s.cards.List(ctx, tenantID, card.ListOptions{NoteID: n.ID})
		if err != nil {
			return nil, fmt.Errorf("listing cards of %s: %w", n.Path, err)
		}
		for _, ref := range refs {
			c, err := s.cards.Get(ctx, tenantID, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("loading card %s: %w", ref.ID, err)
			}
			doc.Cards = append(doc.Cards, Card{
				ID:        c.ID,
				NotePath:  n.Path,
				Kind:      c.Kind,
				Prompt:    c.Prompt,
				Answer:    c.Answer,
				Tags:      c.Tags,
				CreatedAt: c.CreatedAt,
				State:     c.State,
			})
		}
	}
	return doc, nil
}

// Export writes a snapshot to path, replacing it atomically.
func (s *Service) Export(ctx context.Context, tenantID, path string) (*Document, error) {
	doc, err := s.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, filePerms); err != nil {
		return nil, fmt.Errorf("setting archive permissions: %w", err)
	}

	s.logger.Info("archive exported", "path", path, "notes", len(doc.Notes), "cards", len(doc.Cards))
	return doc, nil
}

// Import reads the snapshot at path and restores it.
func (s *Service) Import(ctx context.Context, tenantID, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return s.Restore(ctx, tenantID, doc)
}

// Restore validates doc, creates missing notes by path and upserts every
// card with its state and history. Every card is checked, including IDs held
// by other tenants, before the first note or card is written.
func (s *Service) Restore(ctx context.Context, tenantID string, doc *Document) (*ImportResult, error) {
	if err := doc.Validate(s.cards.Scheduler()); err != nil {
		return nil, err
	}
	reqs := make([]card.RestoreRequest, len(doc.Cards))
	for i, c := range doc.Cards {
		reqs[i] = restoreRequest(c, "")
	}
	if err := s.cards.CheckRestore(ctx, tenantID, reqs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	result := &ImportResult{}
	noteIDs := make(map[string]string, len(doc.Notes))
	for _, n := range doc.Notes {
		existing, err := s.notes.GetByPath(ctx, tenantID, n.Path)
		if err == nil {
			noteIDs[n.Path] = existing.ID
			continue
		}
		if !errors.Is(err, note.ErrNoteNotFound) {
			return nil, fmt.Errorf("looking up note %s: %w", n.Path, err)
		}
		created, err := s.notes.Create(ctx, tenantID, note.CreateRequest{Path: n.Path, Title: n.Title, Tags: n.Tags})
		if err != nil {
			return nil, fmt.Errorf("creating note %s: %w", n.Path, err)
		}
		noteIDs[n.Path] = created.ID
		result.NotesCreated++
	}

	for _, c := range doc.Cards {
		if _, err := s.cards.Restore(ctx, tenantID, restoreRequest(c, noteIDs[c.NotePath])); err != nil {
			return result, fmt.Errorf("restoring card %s: %w", c.ID, err)
		}
		result.CardsImported++
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		ActivityType: activity.TypeCardsImported,
		Summary:      fmt.Sprintf("imported %d cards into %d notes", result.CardsImported, len(doc.Notes)),
		Details:      fmt.Sprintf(`{"notes_created":%d,"cards_imported":%d}`, result.NotesCreated, result.CardsImported),
	})
	return result, nil
}

func restoreRequest(c Card, noteID string) card.RestoreRequest {
	return card.RestoreRequest{
		ID:        c.ID,
		NoteID:    noteID,
		Kind:      c.Kind,
		Prompt:    c.Prompt,
		Answer:    c.Answer,
		Tags:      c.Tags,
		State:     c.State,
		CreatedAt: c.CreatedAt,
	}
}
