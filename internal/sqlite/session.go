package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/repository"
)

var _ session.Repository = (*SessionRepository)(nil)

// SessionRepository implements session.Repository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session and its queue snapshot
func (r *SessionRepository) Create(ctx context.Context, tenantID string, sess *session.Session) error {
	filter, err := json.Marshal(sess.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode session filter: %w", err)
	}

	err = r.db.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO review_sessions (
				id, tenant_id, status, filter, position, reviewed, lapses,
				stopped, created_at, last_activity, closed_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		`
		if _, err := tx.ExecContext(ctx, query,
			sess.ID,
			tenantID,
			sess.Status,
			string(filter),
			sess.Position,
			sess.Reviewed,
			sess.Lapses,
			sess.Stopped,
			formatTime(sess.CreatedAt),
			formatTime(sess.LastActivity),
			formatNullTime(sess.ClosedAt),
		); err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicate
			}
			return fmt.Errorf("failed to create session: %w", err)
		}

		if len(sess.Queue) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO review_session_queue (session_id, position, card_id) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare queue insert: %w", err)
		}
		defer stmt.Close()
		for i, cardID := range sess.Queue {
			if _, err := stmt.ExecContext(ctx, sess.ID, i, cardID); err != nil {
				return fmt.Errorf("failed to queue card: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	sess.TenantID = tenantID
	sess.Version = 1
	return nil
}

// Get retrieves a session with its queue
func (r *SessionRepository) Get(ctx context.Context, tenantID, id string) (*session.Session, error) {
	query := `
		SELECT
			id, tenant_id, status, filter, position, reviewed, lapses,
			stopped, created_at, last_activity, closed_at, version
		FROM review_sessions
		WHERE id = ? AND tenant_id = ?
	`

	var (
		sess         session.Session
		filter       string
		createdAt    string
		lastActivity string
		closedAt     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&sess.ID,
		&sess.TenantID,
		&sess.Status,
		&filter,
		&sess.Position,
		&sess.Reviewed,
		&sess.Lapses,
		&sess.Stopped,
		&createdAt,
		&lastActivity,
		&closedAt,
		&sess.Version,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(filter), &sess.Filter); err != nil {
		return nil, fmt.Errorf("failed to decode session filter: %w", err)
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.LastActivity, err = parseTime(lastActivity); err != nil {
		return nil, err
	}
	if sess.ClosedAt, err = parseNullTime(closedAt); err != nil {
		return nil, err
	}

	queue, err := r.getQueue(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Queue = queue

	return &sess, nil
}

// Update stores progress and status when sess.Version still matches the
// stored row, then bumps sess.Version.
func (r *SessionRepository) Update(ctx context.Context, tenantID string, sess *session.Session) error {
	query := `
		UPDATE review_sessions
		SET status = ?, position = ?, reviewed = ?, lapses = ?, stopped = ?,
		    last_activity = ?, closed_at = ?, version = version + 1
		WHERE id = ? AND tenant_id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sess.Status,
		sess.Position,
		sess.Reviewed,
		sess.Lapses,
		sess.Stopped,
		formatTime(sess.LastActivity),
		formatNullTime(sess.ClosedAt),
		sess.ID,
		tenantID,
		sess.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM review_sessions WHERE id = ? AND tenant_id = ?)`,
			sess.ID, tenantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if exists {
			return repository.ErrConflict
		}
		return repository.ErrNotFound
	}

	sess.Version++
	return nil
}

// ListActive returns open sessions, most recently active first
func (r *SessionRepository) ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error) {
	query := `
		SELECT
			s.id, s.status, s.position, s.reviewed, s.created_at, s.last_activity,
			(SELECT COUNT(*) FROM review_session_queue q WHERE q.session_id = s.id) AS total
		FROM review_sessions s
		WHERE s.tenant_id = ? AND s.status = 'active'
		ORDER BY s.last_activity DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	infos := []session.SessionInfo{}
	for rows.Next() {
		var (
			info         session.SessionInfo
			createdAt    string
			lastActivity string
		)
		if err := rows.Scan(
			&info.SessionID,
			&info.Status,
			&info.Position,
			&info.Reviewed,
			&createdAt,
			&lastActivity,
			&info.Total,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session info: %w", err)
		}
		if info.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if info.LastActivity, err = parseTime(lastActivity); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return infos, nil
}

func (r *SessionRepository) getQueue(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_id FROM review_session_queue WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session queue: %w", err)
	}
	defer rows.Close()

	queue := []string{}
	for rows.Next() {
		var cardID string
		if err := rows.Scan(&cardID); err != nil {
			return nil, fmt.Errorf("failed to scan queued card: %w", err)
		}
		queue = append(queue, cardID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue rows: %w", err)
	}
	return queue, nil
}
