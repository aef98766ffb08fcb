package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/scheduler"
)

const defaultForecastDays = 7

func tenant(r *http.Request) string {
	tenantID, _ := TenantFromContext(r.Context())
	return tenantID
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path  string   `json:"path"`
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	n, err := s.svc.Notes.Create(r.Context(), tenant(r), note.CreateRequest{Path: req.Path, Title: req.Title, Tags: req.Tags})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	now, err := instant(r.URL.Query().Get("now"), s.now)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	notes, err := s.svc.Notes.List(r.Context(), tenant(r), now)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notes.Delete(r.Context(), tenant(r), chi.URLParam(r, "noteID")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string    `json:"id"`
		NoteID   string    `json:"note_id"`
		NotePath string    `json:"note_path"`
		Kind     card.Kind `json:"kind"`
		Prompt   string    `json:"prompt"`
		Answer   string    `json:"answer"`
		Tags     []string  `json:"tags"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	noteID := req.NoteID
	if noteID == "" {
		path := req.NotePath
		if path == "" {
			path = note.DefaultPath
		}
		n, err := s.svc.Notes.GetOrCreateByPath(r.Context(), tenant(r), path)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		noteID = n.ID
	}

	c, err := s.svc.Cards.Register(r.Context(), tenant(r), card.RegisterRequest{
		ID:     req.ID,
		NoteID: noteID,
		Kind:   req.Kind,
		Prompt: req.Prompt,
		Answer: req.Answer,
		Tags:   req.Tags,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Cards.Get(r.Context(), tenant(r), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Cards.Delete(r.Context(), tenant(r), chi.URLParam(r, "cardID")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quality    *int      `json:"quality"`
		ReviewedAt time.Time `json:"reviewed_at"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Quality == nil {
		writeError(w, s.logger, card.ErrInvalidRating)
		return
	}
	c, err := s.svc.Cards.SubmitReview(r.Context(), tenant(r), card.SubmitRequest{
		CardID:     chi.URLParam(r, "cardID"),
		Quality:    scheduler.Quality(*req.Quality),
		ReviewedAt: req.ReviewedAt,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleStopScheduling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoppedAt time.Time `json:"stopped_at"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	c, err := s.svc.Cards.StopScheduling(r.Context(), tenant(r), card.StopRequest{
		CardID:    chi.URLParam(r, "cardID"),
		StoppedAt: req.StoppedAt,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	s.selection(w, r, s.svc.Cards.Due)
}

func (s *Server) handleScheduled(w http.ResponseWriter, r *http.Request) {
	s.selection(w, r, s.svc.Cards.Scheduled)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	refs, err := s.svc.Cards.New(r.Context(), tenant(r), opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": refs, "count": len(refs)})
}

type selectFunc func(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error)

func (s *Server) selection(w http.ResponseWriter, r *http.Request, selectFn selectFunc) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	now, err := instant(r.URL.Query().Get("now"), s.now)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	refs, err := selectFn(r.Context(), tenant(r), now, opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": refs, "count": len(refs)})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	days := defaultForecastDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, s.logger, fmt.Errorf("%w: days must be an integer", errBadRequest))
			return
		}
		days = n
	}
	now, err := instant(r.URL.Query().Get("now"), s.now)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	buckets, err := s.svc.Cards.Forecast(r.Context(), tenant(r), now, days)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": buckets})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NoteID   string    `json:"note_id"`
		Tags     []string  `json:"tags"`
		Query    string    `json:"query"`
		NewLimit *int      `json:"new_limit"`
		Now      time.Time `json:"now"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	limit := s.newCardLimit
	if req.NewLimit != nil {
		limit = *req.NewLimit
	}
	review, err := s.svc.Sessions.Start(r.Context(), tenant(r), session.StartRequest{
		Filter:   card.ListOptions{NoteID: req.NoteID, Tags: req.Tags, Query: req.Query},
		NewLimit: limit,
		Now:      req.Now,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions.ListActive(r.Context(), tenant(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleCurrentReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.svc.Sessions.Current(r.Context(), tenant(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID  string    `json:"card_id"`
		Quality *int      `json:"quality"`
		Stop    bool      `json:"stop"`
		At      time.Time `json:"at"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var outcome scheduler.Outcome
	switch {
	case req.Stop && req.Quality != nil:
		writeError(w, s.logger, fmt.Errorf("%w: pass either quality or stop, not both", errBadRequest))
		return
	case req.Stop:
		outcome = scheduler.Stop{}
	case req.Quality != nil:
		outcome = scheduler.Graded{Quality: scheduler.Quality(*req.Quality)}
	default:
		writeError(w, s.logger, card.ErrInvalidRating)
		return
	}

	result, err := s.svc.Sessions.Answer(r.Context(), tenant(r), session.AnswerRequest{
		SessionID: chi.URLParam(r, "sessionID"),
		CardID:    req.CardID,
		Outcome:   outcome,
		At:        req.At,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Sessions.Close(r.Context(), tenant(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := activity.ListActivityOptions{}
	if v := q.Get("note"); v != "" {
		opts.NoteID = &v
	}
	if v := q.Get("card"); v != "" {
		opts.CardID = &v
	}
	if v := q.Get("session"); v != "" {
		opts.SessionID = &v
	}
	if v := q.Get("type"); v != "" {
		typ := activity.ActivityType(v)
		opts.ActivityType = &typ
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, s.logger, fmt.Errorf("%w: limit: %w", errBadRequest, err))
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, s.logger, fmt.Errorf("%w: offset: %w", errBadRequest, err))
		return
	}

	entries, err := s.svc.Activity.GetRecentActivity(r.Context(), tenant(r), opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
