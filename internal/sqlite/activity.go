package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/spacer/internal/domain/activity"
)

var _ activity.Repository = (*ActivityRepository)(nil)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.Round(0).UTC()

	query := `
		INSERT INTO activity_log (
			tenant_id, note_id, card_id, session_id,
			activity_type, summary, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID,
		entry.NoteID,
		entry.CardID,
		entry.SessionID,
		entry.ActivityType,
		entry.Summary,
		entry.Details,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	entry.TenantID = tenantID
	entry.CreatedAt = createdAt

	return nil
}

// List returns activity entries matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	query := `
		SELECT
			id, tenant_id, note_id, card_id, session_id,
			activity_type, summary, details, created_at
		FROM activity_log
		WHERE tenant_id = ?
	`

	args := []any{tenantID}
	conditions := []string{}

	if opts.NoteID != nil {
		conditions = append(conditions, "note_id = ?")
		args = append(args, *opts.NoteID)
	}
	if opts.CardID != nil {
		conditions = append(conditions, "card_id = ?")
		args = append(args, *opts.CardID)
	}
	if opts.SessionID != nil {
		conditions = append(conditions, "session_id = ?")
		args = append(args, *opts.SessionID)
	}
	if opts.ActivityType != nil {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, *opts.ActivityType)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.ActivityEntry{}
	for rows.Next() {
		var (
			entry     activity.ActivityEntry
			noteID    sql.NullString
			cardID    sql.NullString
			sessionID sql.NullString
			createdAt string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&noteID,
			&cardID,
			&sessionID,
			&entry.ActivityType,
			&entry.Summary,
			&entry.Details,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if noteID.Valid {
			entry.NoteID = &noteID.String
		}
		if cardID.Valid {
			entry.CardID = &cardID.String
		}
		if sessionID.Valid {
			entry.SessionID = &sessionID.String
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}
