package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/keylock"
	"github.com/rpggio/spacer/internal/repository"
	"github.com/rpggio/spacer/internal/scheduler"
)

// Service runs review sessions over the card service.
type Service struct {
	cards      CardService
	sessions   Repository
	activities activity.Logger
	logger     *slog.Logger
	locks      *keylock.Map
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used when a request carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new session service.
func NewService(
	cards CardService,
	sessions Repository,
	activities activity.Logger,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		cards:      cards,
		sessions:   sessions,
		activities: activities,
		logger:     logger,
		locks:      keylock.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRequest describes a new review session.
type StartRequest struct {
	Filter   card.ListOptions
	NewLimit int       // new cards appended after the due ones
	Now      time.Time // zero means now
}

// AnswerRequest reports the outcome for the current card.
type AnswerRequest struct {
	SessionID string
	CardID    string // optional guard against answering a stale card
	Outcome   scheduler.Outcome
	At        time.Time // zero means now
}

// Start snapshots the due queue, most overdue first, followed by up to
// NewLimit new cards. An empty queue yields a session that is already done.
func (s *Service) Start(ctx context.Context, tenantID string, req StartRequest) (*Review, error) {
	if req.NewLimit < 0 {
		return nil, fmt.Errorf("%w: new card limit must not be negative", ErrInvalidInput)
	}
	now := s.timestamp(req.Now)

	due, err := s.cards.Due(ctx, tenantID, now, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("selecting due cards: %w", err)
	}
	queue := make([]string, 0, len(due)+req.NewLimit)
	for _, ref := range due {
		queue = append(queue, ref.ID)
	}

	if req.NewLimit > 0 {
		filter := req.Filter
		filter.Limit = req.NewLimit
		filter.Offset = 0
		fresh, err := s.cards.New(ctx, tenantID, filter)
		if err != nil {
			return nil, fmt.Errorf("selecting new cards: %w", err)
		}
		for _, ref := range fresh {
			queue = append(queue, ref.ID)
		}
	}

	sess := &Session{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Status:       StatusActive,
		Filter:       req.Filter,
		Queue:        queue,
		CreatedAt:    now,
		LastActivity: now,
	}
	if sess.Done() {
		sess.Status = StatusClosed
		sess.ClosedAt = &now
	}

	if err := s.sessions.Create(ctx, tenantID, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		SessionID:    &sess.ID,
		ActivityType: activity.TypeSessionStarted,
		Summary:      fmt.Sprintf("started review session with %d cards", len(queue)),
		CreatedAt:    now,
	})

	return s.current(ctx, tenantID, sess)
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.sessions.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// Current returns the card awaiting an answer, or Done.
func (s *Service) Current(ctx context.Context, tenantID, id string) (*Review, error) {
	unlock := s.locks.Lock(keylock.Key(tenantID, id))
	defer unlock()

	sess, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.current(ctx, tenantID, sess)
}

// Answer applies outcome to the current card and advances the session.
// Answers to one session are serialised; a writer in another process that
// advanced the session first yields ErrSessionConflict.
func (s *Service) Answer(ctx context.Context, tenantID string, req AnswerRequest) (*AnswerResult, error) {
	switch o := req.Outcome.(type) {
	case *scheduler.Graded:
		req.Outcome = nil
		if o != nil {
			req.Outcome = *o
		}
	case *scheduler.Stop:
		req.Outcome = nil
		if o != nil {
			req.Outcome = *o
		}
	}
	if req.Outcome == nil {
		return nil, fmt.Errorf("%w: outcome is required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(keylock.Key(tenantID, req.SessionID))
	defer unlock()

	sess, err := s.Get(ctx, tenantID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusClosed || sess.Done() {
		return nil, ErrSessionClosed
	}

	cardID := sess.Queue[sess.Position]
	if req.CardID != "" && req.CardID != cardID {
		return nil, fmt.Errorf("%w: expected %s", ErrNotCurrentCard, cardID)
	}

	var answered *card.Card
	switch o := req.Outcome.(type) {
	case scheduler.Graded:
		answered, err = s.cards.SubmitReview(ctx, tenantID, card.SubmitRequest{
			CardID:     cardID,
			Quality:    o.Quality,
			ReviewedAt: req.At,
		})
		if err == nil {
			sess.Reviewed++
			if o.Quality.IsLapse() {
				sess.Lapses++
			}
		}
	case scheduler.Stop:
		answered, err = s.cards.StopScheduling(ctx, tenantID, card.StopRequest{
			CardID:    cardID,
			StoppedAt: req.At,
		})
		if err == nil {
			sess.Stopped++
		}
	default:
		return nil, fmt.Errorf("%w: unknown outcome %T", ErrInvalidInput, req.Outcome)
	}
	if err != nil {
		if !errors.Is(err, card.ErrCardNotFound) {
			return nil, err
		}
		// The card vanished mid-session; skip it so the queue can continue.
		s.logger.Info("skipping deleted card", "session_id", sess.ID, "card_id", cardID)
	}

	// The card service resolves a zero time under the card lock.
	at := s.timestamp(req.At)
	if answered != nil && answered.State != nil {
		at = answered.State.LastReviewDate
	}
	sess.Position++
	sess.LastActivity = at
	if err := s.advance(ctx, tenantID, sess, at); err != nil {
		return nil, err
	}
	if answered == nil {
		return nil, card.ErrCardNotFound
	}

	next, err := s.current(ctx, tenantID, sess)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Answered: answered, Next: next}, nil
}

// Close ends a session. Closing a closed session is a no-op.
func (s *Service) Close(ctx context.Context, tenantID, id string) (*Session, error) {
	unlock := s.locks.Lock(keylock.Key(tenantID, id))
	defer unlock()

	sess, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusClosed {
		return sess, nil
	}
	now := s.timestamp(time.Time{})
	sess.LastActivity = now
	if err := s.finish(ctx, tenantID, sess, now); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListActive returns sessions that are still open.
func (s *Service) ListActive(ctx context.Context, tenantID string) ([]SessionInfo, error) {
	return s.sessions.ListActive(ctx, tenantID)
}

// current resolves the card at sess.Position, skipping cards deleted since
// the queue was built.
func (s *Service) current(ctx context.Context, tenantID string, sess *Session) (*Review, error) {
	skipped := false
	for sess.Status == StatusActive && !sess.Done() {
		c, err := s.cards.Get(ctx, tenantID, sess.Queue[sess.Position])
		if err == nil {
			if skipped {
				if err := s.advance(ctx, tenantID, sess, sess.LastActivity); err != nil {
					return nil, err
				}
			}
			return &Review{Session: sess, Card: c}, nil
		}
		if !errors.Is(err, card.ErrCardNotFound) {
			return nil, fmt.Errorf("loading current card: %w", err)
		}
		sess.Position++
		skipped = true
	}

	if sess.Status == StatusActive {
		if err := s.advance(ctx, tenantID, sess, sess.LastActivity); err != nil {
			return nil, err
		}
	}
	return &Review{Session: sess, Done: true}, nil
}

// advance persists progress, closing the session once the queue is empty.
func (s *Service) advance(ctx context.Context, tenantID string, sess *Session, at time.Time) error {
	if sess.Status == StatusActive && sess.Done() {
		return s.finish(ctx, tenantID, sess, at)
	}
	if err := s.sessions.Update(ctx, tenantID, sess); err != nil {
		return updateError("updating session", err)
	}
	return nil
}

func (s *Service) finish(ctx context.Context, tenantID string, sess *Session, at time.Time) error {
	sess.Status = StatusClosed
	sess.ClosedAt = &at
	if err := s.sessions.Update(ctx, tenantID, sess); err != nil {
		return updateError("closing session", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		SessionID:    &sess.ID,
		ActivityType: activity.TypeSessionClosed,
		Summary: fmt.Sprintf("closed review session: %d reviewed, %d lapses, %d stopped",
			sess.Reviewed, sess.Lapses, sess.Stopped),
		CreatedAt: at,
	})
	return nil
}

func (s *Service) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.Round(0).UTC()
}

func updateError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrSessionConflict
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
