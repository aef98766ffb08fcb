package mcp

import (
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
)

// Timestamps in tool arguments are RFC 3339 strings; empty means now.

type CreateNoteParams struct {
	Path  string   `json:"path" jsonschema:"note path such as decks/spanish.md"`
	Title string   `json:"title,omitempty" jsonschema:"display title; defaults to the file name"`
	Tags  []string `json:"tags,omitempty" jsonschema:"note tags inherited by its cards for filtering"`
}

type ListNotesParams struct {
	Now string `json:"now,omitempty" jsonschema:"instant used to count due cards"`
}

type IDParams struct {
	ID string `json:"id" jsonschema:"identifier"`
}

type RegisterCardParams struct {
	ID       string    `json:"id,omitempty" jsonschema:"card identifier; generated when omitted"`
	NoteID   string    `json:"note_id,omitempty" jsonschema:"owning note ID"`
	NotePath string    `json:"note_path,omitempty" jsonschema:"owning note path; created when missing. Used when note_id is empty"`
	Kind     card.Kind `json:"kind,omitempty" jsonschema:"basic or occlusion"`
	Prompt   string    `json:"prompt" jsonschema:"question side"`
	Answer   string    `json:"answer,omitempty" jsonschema:"answer side"`
	Tags     []string  `json:"tags,omitempty"`
}

type SubmitReviewParams struct {
	CardID     string `json:"card_id"`
	Quality    int    `json:"quality" jsonschema:"0-2 failed recall and 3-5 successful recall"`
	ReviewedAt string `json:"reviewed_at,omitempty"`
}

type StopSchedulingParams struct {
	CardID    string `json:"card_id"`
	StoppedAt string `json:"stopped_at,omitempty"`
}

type SelectParams struct {
	NoteID string   `json:"note_id,omitempty"`
	Tags   []string `json:"tags,omitempty" jsonschema:"every tag must match the card or its note"`
	Query  string   `json:"query,omitempty" jsonschema:"full-text search over prompt and answer"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Now    string   `json:"now,omitempty"`
}

func (p SelectParams) options() card.ListOptions {
	return card.ListOptions{NoteID: p.NoteID, Tags: p.Tags, Query: p.Query, Limit: p.Limit, Offset: p.Offset}
}

type ForecastParams struct {
	Days int    `json:"days,omitempty" jsonschema:"horizon in days from 1 to 365; defaults to 7"`
	Now  string `json:"now,omitempty"`
}

type StartReviewParams struct {
	NoteID   string   `json:"note_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Query    string   `json:"query,omitempty"`
	NewLimit *int     `json:"new_limit,omitempty" jsonschema:"new cards appended after due ones"`
	Now      string   `json:"now,omitempty"`
}

type SessionParams struct {
	SessionID string `json:"session_id"`
}

type AnswerReviewParams struct {
	SessionID string `json:"session_id"`
	CardID    string `json:"card_id,omitempty" jsonschema:"current card; rejected when another card is current"`
	Quality   *int   `json:"quality,omitempty" jsonschema:"0-5 rating; required unless stop is set"`
	Stop      bool   `json:"stop,omitempty" jsonschema:"stop scheduling the card instead of rating it"`
	At        string `json:"at,omitempty"`
}

type RecentActivityParams struct {
	NoteID    string `json:"note_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type NotesResponse struct {
	Notes []note.NoteSummary `json:"notes"`
}

type CardsResponse struct {
	Cards []card.CardRef `json:"cards"`
	Count int            `json:"count"`
}

type ForecastResponse struct {
	Days  []card.ForecastDay `json:"days"`
	Total int                `json:"total"`
}

type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type SessionsResponse struct {
	Sessions []session.SessionInfo `json:"sessions"`
}

type ActivityResponse struct {
	Entries []activity.ActivityEntry `json:"entries"`
}
