package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/repository"
	"github.com/rpggio/spacer/internal/repository/mocks"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestSessionService_StartQueuesDueThenNew(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	filter := card.ListOptions{Tags: []string{"bio"}}

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	cards.On("Due", ctx, tenantID, now, filter).Return([]card.CardRef{{ID: "due1"}, {ID: "due2"}}, nil)
	cards.On("New", ctx, tenantID, card.ListOptions{Tags: []string{"bio"}, Limit: 1}).Return([]card.CardRef{{ID: "new1"}}, nil)
	cards.On("Get", ctx, tenantID, "due1").Return(&card.Card{ID: "due1"}, nil)
	sessions.On("Create", ctx, tenantID, mock.MatchedBy(func(s *session.Session) bool {
		return len(s.Queue) == 3 && s.Queue[0] == "due1" && s.Queue[2] == "new1" && s.Status == session.StatusActive
	})).Return(nil)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	review, err := svc.Start(ctx, tenantID, session.StartRequest{Filter: filter, NewLimit: 1})
	require.NoError(t, err)
	require.False(t, review.Done)
	require.Equal(t, "due1", review.Card.ID)
	require.Equal(t, 3, review.Session.Remaining())
	sessions.AssertExpectations(t)
}

func TestSessionService_StartEmptyQueueIsDone(t *testing.T) {
	ctx := context.Background()
	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	cards.On("Due", ctx, "tenant1", now, card.ListOptions{}).Return([]card.CardRef{}, nil)
	sessions.On("Create", ctx, "tenant1", mock.Anything).Return(nil)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	review, err := svc.Start(ctx, "tenant1", session.StartRequest{})
	require.NoError(t, err)
	require.True(t, review.Done)
	require.Nil(t, review.Card)
	require.Equal(t, session.StatusClosed, review.Session.Status)
	cards.AssertNotCalled(t, "New", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.Start(ctx, "tenant1", session.StartRequest{NewLimit: -1})
	require.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestSessionService_AnswerAdvancesAndCloses(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{
		ID:       "s1",
		Status:   session.StatusActive,
		Queue:    []string{"c1", "c2"},
		Position: 0,
	}

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	sessions.On("Update", ctx, "tenant1", sess).Return(nil)
	reviewed := scheduler.Transition(scheduler.InitialState(now), scheduler.QualityWrong, now, false)
	cards.On("SubmitReview", ctx, "tenant1", card.SubmitRequest{
		CardID: "c1", Quality: scheduler.QualityWrong,
	}).Return(&card.Card{ID: "c1", State: &reviewed}, nil)
	cards.On("Get", ctx, "tenant1", "c2").Return(&card.Card{ID: "c2"}, nil)
	cards.On("StopScheduling", ctx, "tenant1", card.StopRequest{CardID: "c2"}).
		Return(&card.Card{ID: "c2"}, nil)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	result, err := svc.Answer(ctx, "tenant1", session.AnswerRequest{
		SessionID: "s1",
		Outcome:   scheduler.Graded{Quality: scheduler.QualityWrong},
	})
	require.NoError(t, err)
	require.Equal(t, "c1", result.Answered.ID)
	require.Equal(t, "c2", result.Next.Card.ID)
	require.Equal(t, 1, sess.Reviewed)
	require.Equal(t, 1, sess.Lapses)
	require.Equal(t, now, sess.LastActivity)

	_, err = svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", CardID: "c1", Outcome: scheduler.Stop{}})
	require.ErrorIs(t, err, session.ErrNotCurrentCard)

	result, err = svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", CardID: "c2", Outcome: scheduler.Stop{}})
	require.NoError(t, err)
	require.True(t, result.Next.Done)
	require.Equal(t, session.StatusClosed, sess.Status)
	require.Equal(t, 1, sess.Stopped)
	require.NotNil(t, sess.ClosedAt)

	_, err = svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", Outcome: scheduler.Stop{}})
	require.ErrorIs(t, err, session.ErrSessionClosed)
}

func TestSessionService_AnswerInvalidRatingKeepsPosition(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{ID: "s1", Status: session.StatusActive, Queue: []string{"c1"}}

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	cards.On("SubmitReview", ctx, "tenant1", mock.Anything).Return((*card.Card)(nil), card.ErrInvalidRating)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	_, err := svc.Answer(ctx, "tenant1", session.AnswerRequest{
		SessionID: "s1",
		Outcome:   scheduler.Graded{Quality: 9},
	})
	require.ErrorIs(t, err, card.ErrInvalidRating)
	require.Equal(t, 0, sess.Position)
	sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1"})
	require.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestSessionService_CurrentSkipsDeletedCards(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{ID: "s1", Status: session.StatusActive, Queue: []string{"gone", "c2"}}

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	sessions.On("Update", ctx, "tenant1", sess).Return(nil)
	cards.On("Get", ctx, "tenant1", "gone").Return((*card.Card)(nil), card.ErrCardNotFound)
	cards.On("Get", ctx, "tenant1", "c2").Return(&card.Card{ID: "c2"}, nil)

	svc := session.NewService(cards, sessions, nil, nil)
	review, err := svc.Current(ctx, "tenant1", "s1")
	require.NoError(t, err)
	require.Equal(t, "c2", review.Card.ID)
	require.Equal(t, 1, sess.Position)
	sessions.AssertNumberOfCalls(t, "Update", 1)
}

func TestSessionService_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{ID: "s1", Status: session.StatusActive, Queue: []string{"c1"}}

	sessions := &mocks.SessionRepository{}
	activities := &mocks.ActivityRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	sessions.On("Update", ctx, "tenant1", sess).Return(nil).Once()
	activities.On("Log", ctx, "tenant1", mock.Anything).Return(nil).Once()

	svc := session.NewService(&mocks.CardService{}, sessions, activities, nil, session.WithClock(clock))
	closed, err := svc.Close(ctx, "tenant1", "s1")
	require.NoError(t, err)
	require.Equal(t, session.StatusClosed, closed.Status)
	require.Equal(t, now, *closed.ClosedAt)

	_, err = svc.Close(ctx, "tenant1", "s1")
	require.NoError(t, err)
	sessions.AssertExpectations(t)
	activities.AssertExpectations(t)
}

func TestSessionService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "nope").Return((*session.Session)(nil), repository.ErrNotFound)

	svc := session.NewService(&mocks.CardService{}, sessions, nil, nil)
	_, err := svc.Current(ctx, "tenant1", "nope")
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionService_AnswerAcceptsPointerOutcomes(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{ID: "s1", Status: session.StatusActive, Queue: []string{"c1", "c2"}}
	at := now.Add(time.Hour)

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	sessions.On("Update", ctx, "tenant1", sess).Return(nil)
	reviewed := scheduler.Transition(scheduler.InitialState(at), scheduler.QualityPerfect, at, false)
	cards.On("SubmitReview", ctx, "tenant1", card.SubmitRequest{
		CardID: "c1", Quality: scheduler.QualityPerfect, ReviewedAt: at,
	}).Return(&card.Card{ID: "c1", State: &reviewed}, nil)
	cards.On("Get", ctx, "tenant1", "c2").Return(&card.Card{ID: "c2"}, nil)
	cards.On("StopScheduling", ctx, "tenant1", card.StopRequest{CardID: "c2", StoppedAt: at}).
		Return(&card.Card{ID: "c2"}, nil)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	_, err := svc.Answer(ctx, "tenant1", session.AnswerRequest{
		SessionID: "s1",
		Outcome:   &scheduler.Graded{Quality: scheduler.QualityPerfect},
		At:        at,
	})
	require.NoError(t, err)
	require.Equal(t, 1, sess.Reviewed)

	result, err := svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", Outcome: &scheduler.Stop{}, At: at})
	require.NoError(t, err)
	require.True(t, result.Next.Done)
	require.Equal(t, 1, sess.Stopped)

	var nilStop *scheduler.Stop
	_, err = svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", Outcome: nilStop})
	require.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestSessionService_AnswerReportsConcurrentAdvance(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{ID: "s1", Status: session.StatusActive, Queue: []string{"c1", "c2"}}

	cards := &mocks.CardService{}
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, "tenant1", "s1").Return(sess, nil)
	sessions.On("Update", ctx, "tenant1", sess).Return(repository.ErrConflict)
	cards.On("StopScheduling", ctx, "tenant1", card.StopRequest{CardID: "c1"}).
		Return(&card.Card{ID: "c1"}, nil)

	svc := session.NewService(cards, sessions, nil, nil, session.WithClock(clock))
	_, err := svc.Answer(ctx, "tenant1", session.AnswerRequest{SessionID: "s1", Outcome: scheduler.Stop{}})
	require.ErrorIs(t, err, session.ErrSessionConflict)
}
