package card

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/keylock"
	"github.com/rpggio/spacer/internal/repository"
	"github.com/rpggio/spacer/internal/scheduler"
)

const (
	// maxAttempts bounds retries after an optimistic version conflict.
	maxAttempts = 3
	// MaxForecastDays bounds Forecast's horizon.
	MaxForecastDays = 365
	day             = 24 * time.Hour
)

// Service handles card registration, review and selection.
type Service struct {
	cards      Repository
	activities activity.Logger
	scheduler  *scheduler.Scheduler
	logger     *slog.Logger
	now        func() time.Time
	locks      *keylock.Map
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used when a request carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithScheduler replaces the default learning-step table.
func WithScheduler(sched *scheduler.Scheduler) Option {
	return func(s *Service) { s.scheduler = sched }
}

// NewService creates a new card service. activities may be nil.
func NewService(cards Repository, activities activity.Logger, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		cards:      cards,
		activities: activities,
		scheduler:  scheduler.Default(),
		logger:     logger,
		now:        time.Now,
		locks:      keylock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scheduler returns the scheduler the service applies.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// RegisterRequest describes a card registration.
type RegisterRequest struct {
	ID     string // optional; generated when empty
	NoteID string
	Kind   Kind
	Prompt string
	Answer string
	Tags   []string
}

// SubmitRequest reports a graded review.
type SubmitRequest struct {
	CardID     string
	Quality    scheduler.Quality
	ReviewedAt time.Time // zero means now
}

// StopRequest removes a card from the schedule.
type StopRequest struct {
	CardID    string
	StoppedAt time.Time // zero means now
}

// RestoreRequest recreates a card with a known state, as read from an archive.
type RestoreRequest struct {
	ID        string
	NoteID    string
	Kind      Kind
	Prompt    string
	Answer    string
	Tags      []string
	State     *scheduler.CardState
	CreatedAt time.Time
}

// Register creates a card under an existing note.
func (s *Service) Register(ctx context.Context, tenantID string, req RegisterRequest) (*Card, error) {
	if err := ValidateRegisterInput(req); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	kind := req.Kind
	if kind == "" {
		kind = KindBasic
	}

	now := s.timestamp(time.Time{})
	c := &Card{
		ID:         id,
		TenantID:   tenantID,
		NoteID:     req.NoteID,
		Kind:       kind,
		Prompt:     req.Prompt,
		Answer:     req.Answer,
		Tags:       NormalizeTags(req.Tags),
		CreatedAt:  now,
		ModifiedAt: now,
		Version:    1,
	}

	if err := s.cards.Create(ctx, tenantID, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, ErrNoteNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateCard
		}
		return nil, fmt.Errorf("creating card: %w", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		NoteID:       &c.NoteID,
		CardID:       &c.ID,
		ActivityType: activity.TypeCardRegistered,
		Summary:      fmt.Sprintf("registered %s card %s", c.Kind, c.ID),
		CreatedAt:    now,
	})

	return c, nil
}

// Restore inserts or replaces a card with the given state.
func (s *Service) Restore(ctx context.Context, tenantID string, req RestoreRequest) (*Card, error) {
	if strings.TrimSpace(req.NoteID) == "" {
		return nil, fmt.Errorf("%w: note_id is required", ErrInvalidInput)
	}
	if err := s.validateRestore(req); err != nil {
		return nil, err
	}

	now := s.timestamp(time.Time{})
	created := req.CreatedAt
	if created.IsZero() {
		created = now
	}
	kind := req.Kind
	if kind == "" {
		kind = KindBasic
	}
	c := &Card{
		ID:         req.ID,
		TenantID:   tenantID,
		NoteID:     req.NoteID,
		Kind:       kind,
		Prompt:     req.Prompt,
		Answer:     req.Answer,
		Tags:       NormalizeTags(req.Tags),
		CreatedAt:  normalize(created),
		ModifiedAt: now,
		Version:    1,
	}
	if req.State != nil {
		state := req.State.Clone()
		c.State = &state
	}

	if err := s.cards.Put(ctx, tenantID, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, ErrNoteNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, req.ID)
		}
		return nil, fmt.Errorf("restoring card: %w", err)
	}
	return c, nil
}

// CheckRestore runs every check Restore would apply to reqs, other than note
// ownership, without writing anything. IDs held by another tenant yield
// ErrDuplicateCard.
func (s *Service) CheckRestore(ctx context.Context, tenantID string, reqs []RestoreRequest) error {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if err := s.validateRestore(req); err != nil {
			return err
		}
		ids = append(ids, req.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	taken, err := s.cards.ForeignIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("checking card ids: %w", err)
	}
	if len(taken) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCard, strings.Join(taken, ", "))
	}
	return nil
}

func (s *Service) validateRestore(req RestoreRequest) error {
	if err := ValidateRestoreInput(req); err != nil {
		return err
	}
	if req.State != nil {
		if err := s.scheduler.Validate(*req.State); err != nil {
			return fmt.Errorf("%w: card %s: %w", ErrInvalidInput, req.ID, err)
		}
	}
	return nil
}

// Get returns a card by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Card, error) {
	c, err := s.cards.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("getting card: %w", err)
	}
	return c, nil
}

// State returns the scheduling state of a card.
func (s *Service) State(ctx context.Context, tenantID, id string) (scheduler.CardState, error) {
	c, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return scheduler.CardState{}, err
	}
	if c.State == nil {
		return scheduler.CardState{}, ErrMissingCardState
	}
	return *c.State, nil
}

// Delete removes a card and its history.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	unlock := s.locks.Lock(keylock.Key(tenantID, id))
	defer unlock()

	c, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCardNotFound
		}
		return fmt.Errorf("deleting card: %w", err)
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		NoteID:       &c.NoteID,
		ActivityType: activity.TypeCardDeleted,
		Summary:      fmt.Sprintf("deleted card %s", id),
		CreatedAt:    s.timestamp(time.Time{}),
	})
	return nil
}

// List returns card references matching opts.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) ([]CardRef, error) {
	if err := validateListOptions(opts); err != nil {
		return nil, err
	}
	return s.cards.List(ctx, tenantID, opts)
}

// SubmitReview applies a graded review to a card.
func (s *Service) SubmitReview(ctx context.Context, tenantID string, req SubmitRequest) (*Card, error) {
	if !req.Quality.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRating, int(req.Quality))
	}
	if strings.TrimSpace(req.CardID) == "" {
		return nil, fmt.Errorf("%w: card_id is required", ErrInvalidInput)
	}

	c, err := s.transition(ctx, tenantID, req.CardID, scheduler.Graded{Quality: req.Quality}, req.ReviewedAt)
	if err != nil {
		return nil, err
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		NoteID:       &c.NoteID,
		CardID:       &c.ID,
		ActivityType: activity.TypeReviewSubmitted,
		Summary:      fmt.Sprintf("rated card %s %d (%s)", c.ID, int(req.Quality), req.Quality),
		Details:      fmt.Sprintf(`{"quality":%d,"interval":%d,"ef":%v}`, int(req.Quality), c.State.Interval, c.State.EF),
		CreatedAt:    c.State.LastReviewDate,
	})
	return c, nil
}

// StopScheduling removes a card from the schedule. The stop itself is not
// recorded in the rating history.
func (s *Service) StopScheduling(ctx context.Context, tenantID string, req StopRequest) (*Card, error) {
	if strings.TrimSpace(req.CardID) == "" {
		return nil, fmt.Errorf("%w: card_id is required", ErrInvalidInput)
	}

	c, err := s.transition(ctx, tenantID, req.CardID, scheduler.Stop{}, req.StoppedAt)
	if err != nil {
		return nil, err
	}

	activity.Record(ctx, s.activities, s.logger, tenantID, &activity.ActivityEntry{
		NoteID:       &c.NoteID,
		CardID:       &c.ID,
		ActivityType: activity.TypeSchedulingStopped,
		Summary:      fmt.Sprintf("stopped scheduling card %s", c.ID),
		CreatedAt:    c.State.LastReviewDate,
	})
	return c, nil
}

// Due lists active cards whose next review is at or before now, most
// overdue first.
func (s *Service) Due(ctx context.Context, tenantID string, now time.Time, opts ListOptions) ([]CardRef, error) {
	if err := validateListOptions(opts); err != nil {
		return nil, err
	}
	return s.cards.ListDue(ctx, tenantID, s.timestamp(now), opts)
}

// Scheduled lists active cards whose next review is after now, soonest first.
func (s *Service) Scheduled(ctx context.Context, tenantID string, now time.Time, opts ListOptions) ([]CardRef, error) {
	if err := validateListOptions(opts); err != nil {
		return nil, err
	}
	return s.cards.ListScheduled(ctx, tenantID, s.timestamp(now), opts)
}

// New lists never-reviewed cards in registration order.
func (s *Service) New(ctx context.Context, tenantID string, opts ListOptions) ([]CardRef, error) {
	if err := validateListOptions(opts); err != nil {
		return nil, err
	}
	return s.cards.ListNew(ctx, tenantID, opts)
}

// Forecast counts cards becoming due on each of the next days UTC calendar
// days. The first day also counts everything already overdue.
func (s *Service) Forecast(ctx context.Context, tenantID string, now time.Time, days int) ([]ForecastDay, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, MaxForecastDays)
	}

	start := s.timestamp(now).Truncate(day)
	until := start.Add(time.Duration(days) * day)
	dates, err := s.cards.NextReviewDates(ctx, tenantID, until)
	if err != nil {
		return nil, fmt.Errorf("loading review dates: %w", err)
	}

	forecast := make([]ForecastDay, days)
	for i := range forecast {
		forecast[i].Date = start.Add(time.Duration(i) * day).Format(time.DateOnly)
	}
	for _, next := range dates {
		idx := 0
		if next.After(start) {
			idx = int(next.Sub(start) / day)
		}
		if idx < days {
			forecast[idx].Due++
		}
	}
	return forecast, nil
}

// transition runs read-apply-write for one card under its lock, retrying when
// another writer bumps the version in between. A zero requested time means
// now, resolved once the lock is held. Times before the card's last review
// are rejected so the history stays ordered.
func (s *Service) transition(ctx context.Context, tenantID, id string, outcome scheduler.Outcome, requested time.Time) (*Card, error) {
	unlock := s.locks.Lock(keylock.Key(tenantID, id))
	defer unlock()

	at := s.timestamp(requested)
	for attempt := 1; ; attempt++ {
		c, err := s.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if c.State != nil && at.Before(c.State.LastReviewDate) {
			return nil, fmt.Errorf("%w: %s is before %s", ErrReviewOutOfOrder,
				at.Format(time.RFC3339), c.State.LastReviewDate.Format(time.RFC3339))
		}

		prior := scheduler.InitialState(at)
		if c.State != nil {
			prior = *c.State
		}
		next := s.scheduler.Apply(prior, outcome, at)
		modified := s.timestamp(time.Time{})

		err = s.cards.UpdateState(ctx, tenantID, id, next, modified, c.Version)
		switch {
		case err == nil:
			c.State = &next
			c.ModifiedAt = modified
			c.Version++
			s.logger.Debug("card transitioned",
				"card_id", id,
				"phase", next.Phase(),
				"interval", next.Interval,
				"ef", next.EF,
			)
			return c, nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCardNotFound
		case errors.Is(err, repository.ErrConflict):
			if attempt >= maxAttempts {
				return nil, ErrConflict
			}
			s.logger.Debug("card version conflict, retrying", "card_id", id, "attempt", attempt)
		default:
			return nil, fmt.Errorf("updating card state: %w", err)
		}
	}
}

func (s *Service) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return normalize(t)
}

// normalize drops the monotonic reading and moves t to UTC so stored and
// computed times compare equal and day arithmetic is zone independent.
func normalize(t time.Time) time.Time {
	return t.Round(0).UTC()
}

func validateListOptions(opts ListOptions) error {
	if opts.Limit < 0 || opts.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	return ValidateTags(opts.Tags)
}
