package mcp

import (
	"context"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/scheduler"
)

const defaultForecastDays = 7

func registerTools(server *sdkmcp.Server, t *tools) {
	// Notes
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_note",
		Description: "Create a note that owns cards",
	}, t.createNote)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_notes",
		Description: "List notes with card, new and due counts",
	}, t.listNotes)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note and every card it owns",
	}, t.deleteNote)

	// Cards
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "register_card",
		Description: "Register a new card. It stays unscheduled until its first review",
	}, t.registerCard)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_card",
		Description: "Get a card with its scheduling state and rating history",
	}, t.getCard)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_card_state",
		Description: "Get only the scheduling state of a reviewed card",
	}, t.getCardState)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_card",
		Description: "Delete a card and its history",
	}, t.deleteCard)

	// Scheduling
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_review",
		Description: "Record a graded review (quality 0-5) and reschedule the card",
	}, t.submitReview)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "stop_scheduling",
		Description: "Remove a card from the schedule without touching its history",
	}, t.stopScheduling)

	// Selection
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_due",
		Description: "List active cards due now, most overdue first",
	}, t.listDue)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_scheduled",
		Description: "List active cards due later, soonest first",
	}, t.listScheduled)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_new",
		Description: "List cards that have never been reviewed",
	}, t.listNew)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "forecast",
		Description: "Count the reviews falling due on each of the coming days",
	}, t.forecast)

	// Review sessions
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_review_session",
		Description: "Snapshot due cards, then new ones, into a review queue and show the first card",
	}, t.startReview)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "current_review",
		Description: "Show the current card of a review session",
	}, t.currentReview)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "answer_review",
		Description: "Rate the current card (or stop it) and advance to the next one",
	}, t.answerReview)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_review_session",
		Description: "Close a review session",
	}, t.closeReview)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_review_sessions",
		Description: "List active review sessions",
	}, t.listReviews)

	// Audit
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent registrations, reviews and session events, newest first",
	}, t.recentActivity)
}

func (t *tools) createNote(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateNoteParams) (*sdkmcp.CallToolResult, any, error) {
	n, err := t.svc.Notes.Create(ctx, getTenantID(ctx), note.CreateRequest{Path: in.Path, Title: in.Title, Tags: in.Tags})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, n, nil
}

func (t *tools) listNotes(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListNotesParams) (*sdkmcp.CallToolResult, any, error) {
	now, err := t.instant(in.Now)
	if err != nil {
		return nil, nil, err
	}
	notes, err := t.svc.Notes.List(ctx, getTenantID(ctx), now)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, NotesResponse{Notes: notes}, nil
}

func (t *tools) deleteNote(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.svc.Notes.Delete(ctx, getTenantID(ctx), in.ID); err != nil {
		return nil, nil, mapError(err)
	}
	return nil, DeletedResponse{ID: in.ID, Deleted: true}, nil
}

func (t *tools) registerCard(ctx context.Context, _ *sdkmcp.CallToolRequest, in RegisterCardParams) (*sdkmcp.CallToolResult, any, error) {
	tenantID := getTenantID(ctx)
	noteID := in.NoteID
	if noteID == "" {
		path := in.NotePath
		if path == "" {
			path = note.DefaultPath
		}
		n, err := t.svc.Notes.GetOrCreateByPath(ctx, tenantID, path)
		if err != nil {
			return nil, nil, mapError(err)
		}
		noteID = n.ID
	}

	c, err := t.svc.Cards.Register(ctx, tenantID, card.RegisterRequest{
		ID:     in.ID,
		NoteID: noteID,
		Kind:   in.Kind,
		Prompt: in.Prompt,
		Answer: in.Answer,
		Tags:   in.Tags,
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, c, nil
}

func (t *tools) getCard(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, any, error) {
	c, err := t.svc.Cards.Get(ctx, getTenantID(ctx), in.ID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, c, nil
}

func (t *tools) getCardState(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, any, error) {
	state, err := t.svc.Cards.State(ctx, getTenantID(ctx), in.ID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, state, nil
}

func (t *tools) deleteCard(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.svc.Cards.Delete(ctx, getTenantID(ctx), in.ID); err != nil {
		return nil, nil, mapError(err)
	}
	return nil, DeletedResponse{ID: in.ID, Deleted: true}, nil
}

func (t *tools) submitReview(ctx context.Context, _ *sdkmcp.CallToolRequest, in SubmitReviewParams) (*sdkmcp.CallToolResult, any, error) {
	at, err := parseOptionalTime("reviewed_at", in.ReviewedAt)
	if err != nil {
		return nil, nil, err
	}
	c, err := t.svc.Cards.SubmitReview(ctx, getTenantID(ctx), card.SubmitRequest{
		CardID:     in.CardID,
		Quality:    scheduler.Quality(in.Quality),
		ReviewedAt: at,
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, c, nil
}

func (t *tools) stopScheduling(ctx context.Context, _ *sdkmcp.CallToolRequest, in StopSchedulingParams) (*sdkmcp.CallToolResult, any, error) {
	at, err := parseOptionalTime("stopped_at", in.StoppedAt)
	if err != nil {
		return nil, nil, err
	}
	c, err := t.svc.Cards.StopScheduling(ctx, getTenantID(ctx), card.StopRequest{CardID: in.CardID, StoppedAt: at})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, c, nil
}

func (t *tools) listDue(ctx context.Context, _ *sdkmcp.CallToolRequest, in SelectParams) (*sdkmcp.CallToolResult, any, error) {
	now, err := t.instant(in.Now)
	if err != nil {
		return nil, nil, err
	}
	return cardsResult(t.svc.Cards.Due(ctx, getTenantID(ctx), now, in.options()))
}

func (t *tools) listScheduled(ctx context.Context, _ *sdkmcp.CallToolRequest, in SelectParams) (*sdkmcp.CallToolResult, any, error) {
	now, err := t.instant(in.Now)
	if err != nil {
		return nil, nil, err
	}
	return cardsResult(t.svc.Cards.Scheduled(ctx, getTenantID(ctx), now, in.options()))
}

func (t *tools) listNew(ctx context.Context, _ *sdkmcp.CallToolRequest, in SelectParams) (*sdkmcp.CallToolResult, any, error) {
	return cardsResult(t.svc.Cards.New(ctx, getTenantID(ctx), in.options()))
}

func cardsResult(refs []card.CardRef, err error) (*sdkmcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, CardsResponse{Cards: refs, Count: len(refs)}, nil
}

func (t *tools) forecast(ctx context.Context, _ *sdkmcp.CallToolRequest, in ForecastParams) (*sdkmcp.CallToolResult, any, error) {
	now, err := t.instant(in.Now)
	if err != nil {
		return nil, nil, err
	}
	days := in.Days
	if days == 0 {
		days = defaultForecastDays
	}
	buckets, err := t.svc.Cards.Forecast(ctx, getTenantID(ctx), now, days)
	if err != nil {
		return nil, nil, mapError(err)
	}
	total := 0
	for _, b := range buckets {
		total += b.Due
	}
	return nil, ForecastResponse{Days: buckets, Total: total}, nil
}

func (t *tools) startReview(ctx context.Context, _ *sdkmcp.CallToolRequest, in StartReviewParams) (*sdkmcp.CallToolResult, any, error) {
	now, err := t.instant(in.Now)
	if err != nil {
		return nil, nil, err
	}
	limit := t.newCardLimit
	if in.NewLimit != nil {
		limit = *in.NewLimit
	}
	review, err := t.svc.Sessions.Start(ctx, getTenantID(ctx), session.StartRequest{
		Filter:   card.ListOptions{NoteID: in.NoteID, Tags: in.Tags, Query: in.Query},
		NewLimit: limit,
		Now:      now,
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, review, nil
}

func (t *tools) currentReview(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
	review, err := t.svc.Sessions.Current(ctx, getTenantID(ctx), in.SessionID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, review, nil
}

func (t *tools) answerReview(ctx context.Context, _ *sdkmcp.CallToolRequest, in AnswerReviewParams) (*sdkmcp.CallToolResult, any, error) {
	var outcome scheduler.Outcome
	switch {
	case in.Stop && in.Quality != nil:
		return nil, nil, invalidInput("pass either quality or stop, not both")
	case in.Stop:
		outcome = scheduler.Stop{}
	case in.Quality != nil:
		outcome = scheduler.Graded{Quality: scheduler.Quality(*in.Quality)}
	default:
		return nil, nil, invalidInput("quality is required unless stop is set")
	}

	at, err := parseOptionalTime("at", in.At)
	if err != nil {
		return nil, nil, err
	}
	result, err := t.svc.Sessions.Answer(ctx, getTenantID(ctx), session.AnswerRequest{
		SessionID: in.SessionID,
		CardID:    in.CardID,
		Outcome:   outcome,
		At:        at,
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, result, nil
}

func (t *tools) closeReview(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
	sess, err := t.svc.Sessions.Close(ctx, getTenantID(ctx), in.SessionID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, sess, nil
}

func (t *tools) listReviews(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, any, error) {
	sessions, err := t.svc.Sessions.ListActive(ctx, getTenantID(ctx))
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, SessionsResponse{Sessions: sessions}, nil
}

func (t *tools) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, any, error) {
	opts := activity.ListActivityOptions{
		NoteID:    optional(in.NoteID),
		CardID:    optional(in.CardID),
		SessionID: optional(in.SessionID),
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if in.Type != "" {
		typ := activity.ActivityType(in.Type)
		opts.ActivityType = &typ
	}
	entries, err := t.svc.Activity.GetRecentActivity(ctx, getTenantID(ctx), opts)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return nil, ActivityResponse{Entries: entries}, nil
}

// instant parses s, falling back to the server clock.
func (t *tools) instant(s string) (time.Time, error) {
	at, err := parseOptionalTime("now", s)
	if err != nil {
		return time.Time{}, err
	}
	if at.IsZero() {
		return t.now(), nil
	}
	return at, nil
}

func parseOptionalTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	at, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, invalidInput("%s must be an RFC 3339 timestamp: %v", field, err)
	}
	return at, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
