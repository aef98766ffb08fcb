// Package mocks provides testify mocks for the domain repository contracts.
package mocks

import (
	"context"
	"time"

	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/stretchr/testify/mock"
)

// CardRepository is a mock for card.Repository.
type CardRepository struct {
	mock.Mock
}

func (m *CardRepository) Create(ctx context.Context, tenantID string, c *card.Card) error {
	args := m.Called(ctx, tenantID, c)
	return args.Error(0)
}

func (m *CardRepository) Get(ctx context.Context, tenantID, id string) (*card.Card, error) {
	args := m.Called(ctx, tenantID, id)
	if c, ok := args.Get(0).(*card.Card); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *CardRepository) List(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) UpdateState(ctx context.Context, tenantID, id string, state scheduler.CardState, modifiedAt time.Time, expectedVersion int64) error {
	args := m.Called(ctx, tenantID, id, state, modifiedAt, expectedVersion)
	return args.Error(0)
}

func (m *CardRepository) Put(ctx context.Context, tenantID string, c *card.Card) error {
	args := m.Called(ctx, tenantID, c)
	return args.Error(0)
}

func (m *CardRepository) ForeignIDs(ctx context.Context, tenantID string, ids []string) ([]string, error) {
	args := m.Called(ctx, tenantID, ids)
	if taken, ok := args.Get(0).([]string); ok {
		return taken, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) ListDue(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, now, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) ListScheduled(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, now, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) ListNew(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) NextReviewDates(ctx context.Context, tenantID string, until time.Time) ([]time.Time, error) {
	args := m.Called(ctx, tenantID, until)
	if dates, ok := args.Get(0).([]time.Time); ok {
		return dates, args.Error(1)
	}
	return nil, args.Error(1)
}

// NoteRepository is a mock for note.Repository.
type NoteRepository struct {
	mock.Mock
}

func (m *NoteRepository) Create(ctx context.Context, tenantID string, n *note.Note) error {
	args := m.Called(ctx, tenantID, n)
	return args.Error(0)
}

func (m *NoteRepository) Get(ctx context.Context, tenantID, id string) (*note.Note, error) {
	args := m.Called(ctx, tenantID, id)
	if n, ok := args.Get(0).(*note.Note); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) GetByPath(ctx context.Context, tenantID, path string) (*note.Note, error) {
	args := m.Called(ctx, tenantID, path)
	if n, ok := args.Get(0).(*note.Note); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) List(ctx context.Context, tenantID string, now time.Time) ([]note.NoteSummary, error) {
	args := m.Called(ctx, tenantID, now)
	if list, ok := args.Get(0).([]note.NoteSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// SessionRepository is a mock for session.Repository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, tenantID string, sess *session.Session) error {
	args := m.Called(ctx, tenantID, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, tenantID, id string) (*session.Session, error) {
	args := m.Called(ctx, tenantID, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Update(ctx context.Context, tenantID string, sess *session.Session) error {
	args := m.Called(ctx, tenantID, sess)
	return args.Error(0)
}

func (m *SessionRepository) ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]session.SessionInfo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CardService is a mock for session.CardService.
type CardService struct {
	mock.Mock
}

func (m *CardService) Get(ctx context.Context, tenantID, id string) (*card.Card, error) {
	args := m.Called(ctx, tenantID, id)
	if c, ok := args.Get(0).(*card.Card); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardService) Due(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, now, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardService) New(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error) {
	args := m.Called(ctx, tenantID, opts)
	if refs, ok := args.Get(0).([]card.CardRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardService) SubmitReview(ctx context.Context, tenantID string, req card.SubmitRequest) (*card.Card, error) {
	args := m.Called(ctx, tenantID, req)
	if c, ok := args.Get(0).(*card.Card); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardService) StopScheduling(ctx context.Context, tenantID string, req card.StopRequest) (*card.Card, error) {
	args := m.Called(ctx, tenantID, req)
	if c, ok := args.Get(0).(*card.Card); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
