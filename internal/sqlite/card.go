package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/repository"
	"github.com/rpggio/spacer/internal/scheduler"
)

var _ card.Repository = (*CardRepository)(nil)

// CardRepository implements card.Repository for SQLite
type CardRepository struct {
	db *DB
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{db: db}
}

const cardColumns = `
	c.id, c.tenant_id, c.note_id, c.kind, c.prompt, c.answer, c.tags,
	c.has_state, c.repetition, c.interval_days, c.ef, c.last_review_at,
	c.next_review_at, c.active, c.is_learning, c.learning_step,
	c.created_at, c.modified_at, c.version
`

const cardRefColumns = `
	c.id, c.note_id, c.kind, c.prompt, c.tags, c.has_state, c.repetition,
	c.interval_days, c.ef, c.next_review_at, c.active, c.is_learning
`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create creates a new, never-reviewed card
func (r *CardRepository) Create(ctx context.Context, tenantID string, c *card.Card) error {
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cards (
			id, tenant_id, note_id, kind, prompt, answer, tags,
			created_at, modified_at, version
		)
		SELECT ?, ?, n.id, ?, ?, ?, ?, ?, ?, ?
		FROM notes n WHERE n.id = ? AND n.tenant_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		c.ID,
		tenantID,
		c.Kind,
		c.Prompt,
		c.Answer,
		tags,
		formatTime(c.CreatedAt),
		formatTime(c.ModifiedAt),
		c.Version,
		c.NoteID,
		tenantID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create card: %w", err)
	}

	// The insert selects from notes so a note owned by another tenant
	// behaves like a missing one.
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrForeignKeyViolation
	}

	c.TenantID = tenantID
	return nil
}

// Get retrieves a card with its full rating history
func (r *CardRepository) Get(ctx context.Context, tenantID, id string) (*card.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = ? AND c.tenant_id = ?`

	c, err := scanCard(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if c.State != nil {
		history, err := loadHistory(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		c.State.RatingHistory = history
	}

	return c, nil
}

// Delete deletes a card; its history goes with it
func (r *CardRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
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

// List returns cards matching opts in registration order
func (r *CardRepository) List(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error) {
	return r.listRefs(ctx, tenantID, opts, nil, nil, "c.created_at ASC, c.rowid ASC")
}

// ListDue returns active cards due at or before now, most overdue first
func (r *CardRepository) ListDue(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error) {
	return r.listRefs(ctx, tenantID, opts,
		[]string{"c.has_state = 1", "c.active = 1", "c.next_review_at IS NOT NULL", "c.next_review_at <= ?"},
		[]any{formatTime(now)},
		"c.next_review_at ASC, c.rowid ASC",
	)
}

// ListScheduled returns active cards due after now, soonest first
func (r *CardRepository) ListScheduled(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error) {
	return r.listRefs(ctx, tenantID, opts,
		[]string{"c.has_state = 1", "c.active = 1", "c.next_review_at > ?"},
		[]any{formatTime(now)},
		"c.next_review_at ASC, c.rowid ASC",
	)
}

// ListNew returns never-reviewed cards in registration order
func (r *CardRepository) ListNew(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error) {
	return r.listRefs(ctx, tenantID, opts,
		[]string{"c.has_state = 0"},
		nil,
		"c.created_at ASC, c.rowid ASC",
	)
}

// NextReviewDates returns the next review of every active card before until
func (r *CardRepository) NextReviewDates(ctx context.Context, tenantID string, until time.Time) ([]time.Time, error) {
	query := `
		SELECT next_review_at FROM cards
		WHERE tenant_id = ? AND active = 1 AND next_review_at IS NOT NULL AND next_review_at < ?
		ORDER BY next_review_at
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, formatTime(until))
	if err != nil {
		return nil, fmt.Errorf("failed to list review dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan review date: %w", err)
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review dates: %w", err)
	}
	return dates, nil
}

// foreignIDBatch keeps each IN list under SQLite's variable limit.
const foreignIDBatch = 500

// ForeignIDs returns the subset of ids already taken by other tenants
func (r *CardRepository) ForeignIDs(ctx context.Context, tenantID string, ids []string) ([]string, error) {
	taken := []string{}
	for start := 0; start < len(ids); start += foreignIDBatch {
		batch := ids[start:min(start+foreignIDBatch, len(ids))]
		args := make([]any, 0, len(batch)+1)
		args = append(args, tenantID)
		for _, id := range batch {
			args = append(args, id)
		}
		query := `SELECT id FROM cards WHERE tenant_id <> ? AND id IN (` +
			strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",") + `) ORDER BY id`

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to check card ownership: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan card id: %w", err)
			}
			taken = append(taken, id)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating card ids: %w", err)
		}
	}
	return taken, nil
}

// UpdateState writes the scheduling state if the card is still at
// expectedVersion. History rows already stored are left in place and only
// the new tail is appended.
func (r *CardRepository) UpdateState(ctx context.Context, tenantID, id string, state scheduler.CardState, modifiedAt time.Time, expectedVersion int64) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE cards
			SET has_state = 1, repetition = ?, interval_days = ?, ef = ?,
			    last_review_at = ?, next_review_at = ?, active = ?,
			    is_learning = ?, learning_step = ?, modified_at = ?,
			    version = version + 1
			WHERE id = ? AND tenant_id = ? AND version = ?
		`
		result, err := tx.ExecContext(ctx, query,
			state.Repetition,
			state.Interval,
			state.EF,
			formatTime(state.LastReviewDate),
			formatNullTime(state.NextReviewDate),
			state.Active,
			state.IsLearning,
			state.LearningStep,
			formatTime(modifiedAt),
			id,
			tenantID,
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update card state: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var exists bool
			checkQuery := `SELECT EXISTS(SELECT 1 FROM cards WHERE id = ? AND tenant_id = ?)`
			if err := tx.QueryRowContext(ctx, checkQuery, id, tenantID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check card existence: %w", err)
			}
			if !exists {
				return repository.ErrNotFound
			}
			// Card exists but version doesn't match - conflict
			return repository.ErrConflict
		}

		var stored int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_ratings WHERE card_id = ?`, id).Scan(&stored); err != nil {
			return fmt.Errorf("failed to count ratings: %w", err)
		}
		if stored > len(state.RatingHistory) {
			return fmt.Errorf("%w: rating history of card %s would shrink from %d to %d",
				repository.ErrInvalidInput, id, stored, len(state.RatingHistory))
		}

		return insertHistory(ctx, tx, id, stored, state.RatingHistory[stored:])
	})
}

// Put inserts or replaces a card together with its whole history
func (r *CardRepository) Put(ctx context.Context, tenantID string, c *card.Card) error {
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		var version int64
		err := tx.QueryRowContext(ctx, `SELECT tenant_id, version FROM cards WHERE id = ?`, c.ID).Scan(&owner, &version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			version = 0
		case err != nil:
			return fmt.Errorf("failed to look up card: %w", err)
		case owner != tenantID:
			return repository.ErrDuplicate
		default:
			if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to replace card: %w", err)
			}
		}

		var noteOwned bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM notes WHERE id = ? AND tenant_id = ?)`, c.NoteID, tenantID,
		).Scan(&noteOwned); err != nil {
			return fmt.Errorf("failed to check note: %w", err)
		}
		if !noteOwned {
			return repository.ErrForeignKeyViolation
		}

		st := c.State
		hasState := st != nil
		if st == nil {
			initial := scheduler.InitialState(c.CreatedAt)
			st = &initial
		}
		var lastReview sql.NullString
		if hasState {
			lastReview = sql.NullString{String: formatTime(st.LastReviewDate), Valid: true}
		}

		c.Version = version + 1
		query := `
			INSERT INTO cards (
				id, tenant_id, note_id, kind, prompt, answer, tags,
				has_state, repetition, interval_days, ef, last_review_at,
				next_review_at, active, is_learning, learning_step,
				created_at, modified_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			c.ID,
			tenantID,
			c.NoteID,
			c.Kind,
			c.Prompt,
			c.Answer,
			tags,
			hasState,
			st.Repetition,
			st.Interval,
			st.EF,
			lastReview,
			formatNullTime(st.NextReviewDate),
			st.Active,
			st.IsLearning,
			st.LearningStep,
			formatTime(c.CreatedAt),
			formatTime(c.ModifiedAt),
			c.Version,
		); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to insert card: %w", err)
		}

		c.TenantID = tenantID
		if !hasState {
			return nil
		}
		return insertHistory(ctx, tx, c.ID, 0, c.State.RatingHistory)
	})
}

func (r *CardRepository) listRefs(
	ctx context.Context,
	tenantID string,
	opts card.ListOptions,
	conditions []string,
	conditionArgs []any,
	orderBy string,
) ([]card.CardRef, error) {
	query := `SELECT ` + cardRefColumns + ` FROM cards c JOIN notes n ON n.id = c.note_id WHERE c.tenant_id = ?`
	args := []any{tenantID}

	where, whereArgs := filterConditions(opts)
	conditions = append(conditions, where...)
	args = append(args, conditionArgs...)
	args = append(args, whereArgs...)

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + orderBy

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
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	refs := []card.CardRef{}
	for rows.Next() {
		ref, err := scanCardRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}

	return refs, nil
}

// filterConditions turns the selector filter into SQL. Tags match when the
// card or its note carries them; the query runs against the FTS index.
func filterConditions(opts card.ListOptions) ([]string, []any) {
	var conditions []string
	var args []any

	if opts.NoteID != "" {
		conditions = append(conditions, "c.note_id = ?")
		args = append(args, opts.NoteID)
	}
	for _, tag := range opts.Tags {
		conditions = append(conditions, `(
			EXISTS (SELECT 1 FROM json_each(c.tags) WHERE json_each.value = ?)
			OR EXISTS (SELECT 1 FROM json_each(n.tags) WHERE json_each.value = ?))`)
		args = append(args, tag, tag)
	}
	if match := ftsMatch(opts.Query); match != "" {
		conditions = append(conditions, "c.rowid IN (SELECT rowid FROM cards_fts WHERE cards_fts MATCH ?)")
		args = append(args, match)
	}

	return conditions, args
}

func scanCard(row rowScanner) (*card.Card, error) {
	var (
		c            card.Card
		tags         string
		hasState     bool
		repetition   int
		interval     int
		ef           float64
		lastReview   sql.NullString
		nextReview   sql.NullString
		active       bool
		isLearning   bool
		learningStep sql.NullInt64
		createdAt    string
		modifiedAt   string
	)
	if err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.NoteID,
		&c.Kind,
		&c.Prompt,
		&c.Answer,
		&tags,
		&hasState,
		&repetition,
		&interval,
		&ef,
		&lastReview,
		&nextReview,
		&active,
		&isLearning,
		&learningStep,
		&createdAt,
		&modifiedAt,
		&c.Version,
	); err != nil {
		return nil, err
	}

	var err error
	if c.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return nil, err
	}

	if !hasState {
		return &c, nil
	}

	state := scheduler.CardState{
		Repetition:    repetition,
		Interval:      interval,
		EF:            ef,
		Active:        active,
		IsLearning:    isLearning,
		RatingHistory: []scheduler.RatingEntry{},
	}
	if lastReview.Valid {
		if state.LastReviewDate, err = parseTime(lastReview.String); err != nil {
			return nil, err
		}
	}
	if state.NextReviewDate, err = parseNullTime(nextReview); err != nil {
		return nil, err
	}
	if learningStep.Valid {
		step := int(learningStep.Int64)
		state.LearningStep = &step
	}
	c.State = &state

	return &c, nil
}

func scanCardRef(row rowScanner) (card.CardRef, error) {
	var (
		ref        card.CardRef
		tags       string
		hasState   bool
		nextReview sql.NullString
		isLearning bool
	)
	if err := row.Scan(
		&ref.ID,
		&ref.NoteID,
		&ref.Kind,
		&ref.Prompt,
		&tags,
		&hasState,
		&ref.Repetition,
		&ref.Interval,
		&ref.EF,
		&nextReview,
		&ref.Active,
		&isLearning,
	); err != nil {
		return card.CardRef{}, fmt.Errorf("failed to scan card: %w", err)
	}

	var err error
	if ref.Tags, err = decodeTags(tags); err != nil {
		return card.CardRef{}, err
	}
	if ref.NextReviewDate, err = parseNullTime(nextReview); err != nil {
		return card.CardRef{}, err
	}

	switch {
	case !hasState:
		ref.Phase = scheduler.PhaseFresh
	default:
		ref.Phase = scheduler.CardState{
			Repetition: ref.Repetition,
			Active:     ref.Active,
			IsLearning: isLearning,
		}.Phase()
	}

	return ref, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadHistory(ctx context.Context, q queryer, cardID string) ([]scheduler.RatingEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT reviewed_at, ef, rating FROM card_ratings WHERE card_id = ? ORDER BY seq`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating history: %w", err)
	}
	defer rows.Close()

	history := []scheduler.RatingEntry{}
	for rows.Next() {
		var (
			entry      scheduler.RatingEntry
			reviewedAt string
		)
		if err := rows.Scan(&reviewedAt, &entry.EF, &entry.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		if entry.Timestamp, err = parseTime(reviewedAt); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return history, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, cardID string, firstSeq int, entries []scheduler.RatingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO card_ratings (card_id, seq, reviewed_at, ef, rating) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare rating insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range entries {
		if _, err := stmt.ExecContext(ctx, cardID, firstSeq+i, formatTime(entry.Timestamp), entry.EF, int(entry.Rating)); err != nil {
			return fmt.Errorf("failed to append rating: %w", err)
		}
	}
	return nil
}
