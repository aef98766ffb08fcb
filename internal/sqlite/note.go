package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/repository"
)

var _ note.Repository = (*NoteRepository)(nil)

// NoteRepository implements note.Repository for SQLite
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new NoteRepository
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create creates a new note
func (r *NoteRepository) Create(ctx context.Context, tenantID string, n *note.Note) error {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notes (id, tenant_id, path, title, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		n.ID,
		tenantID,
		n.Path,
		n.Title,
		tags,
		formatTime(n.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create note: %w", err)
	}

	n.TenantID = tenantID
	return nil
}

// Get retrieves a note by ID
func (r *NoteRepository) Get(ctx context.Context, tenantID, id string) (*note.Note, error) {
	query := `
		SELECT id, tenant_id, path, title, tags, created_at
		FROM notes
		WHERE id = ? AND tenant_id = ?
	`
	return r.getOne(ctx, query, id, tenantID)
}

// GetByPath retrieves a note by its path
func (r *NoteRepository) GetByPath(ctx context.Context, tenantID, path string) (*note.Note, error) {
	query := `
		SELECT id, tenant_id, path, title, tags, created_at
		FROM notes
		WHERE path = ? AND tenant_id = ?
	`
	return r.getOne(ctx, query, path, tenantID)
}

func (r *NoteRepository) getOne(ctx context.Context, query string, args ...any) (*note.Note, error) {
	var (
		n         note.Note
		tags      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&n.ID,
		&n.TenantID,
		&n.Path,
		&n.Title,
		&tags,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	if n.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns note summaries with card counts as of now
func (r *NoteRepository) List(ctx context.Context, tenantID string, now time.Time) ([]note.NoteSummary, error) {
	query := `
		SELECT
			n.id, n.path, n.title, n.tags, n.created_at,
			COUNT(c.id) AS card_count,
			COUNT(CASE WHEN c.has_state = 0 THEN 1 END) AS new_count,
			COUNT(CASE WHEN c.active = 1 AND c.next_review_at <= ? THEN 1 END) AS due_count
		FROM notes n
		LEFT JOIN cards c ON c.note_id = n.id
		WHERE n.tenant_id = ?
		GROUP BY n.id, n.path, n.title, n.tags, n.created_at
		ORDER BY n.path
	`

	rows, err := r.db.QueryContext(ctx, query, formatTime(now), tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	summaries := []note.NoteSummary{}
	for rows.Next() {
		var (
			s         note.NoteSummary
			tags      string
			createdAt string
		)
		if err := rows.Scan(
			&s.ID,
			&s.Path,
			&s.Title,
			&tags,
			&createdAt,
			&s.CardCount,
			&s.NewCount,
			&s.DueCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan note summary: %w", err)
		}
		if s.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note rows: %w", err)
	}

	return summaries, nil
}

// Delete deletes a note; cards and ratings cascade
func (r *NoteRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
