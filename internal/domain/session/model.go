package session

import (
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
)

// SessionStatus represents the lifecycle status of a review session
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// Session is one pass over a snapshot of due and new cards
type Session struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	Status       SessionStatus    `json:"status"`
	Filter       card.ListOptions `json:"filter"`
	Queue        []string         `json:"queue"`
	Position     int              `json:"position"`
	Reviewed     int              `json:"reviewed"`
	Lapses       int              `json:"lapses"`
	Stopped      int              `json:"stopped"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty"`
	Version      int64            `json:"version"`
}

// Done reports whether every queued card has been answered.
func (s *Session) Done() bool {
	return s.Position >= len(s.Queue)
}

// Remaining returns how many queued cards are still unanswered.
func (s *Session) Remaining() int {
	return max(len(s.Queue)-s.Position, 0)
}

// Info returns the listing view of s.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		SessionID:    s.ID,
		Status:       s.Status,
		Total:        len(s.Queue),
		Position:     s.Position,
		Reviewed:     s.Reviewed,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// SessionInfo provides information about a review session
type SessionInfo struct {
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	Total        int           `json:"total"`
	Position     int           `json:"position"`
	Reviewed     int           `json:"reviewed"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// Review is what the presentation layer shows next: the current card, or
// Done once the queue is exhausted
type Review struct {
	Session *Session   `json:"session"`
	Card    *card.Card `json:"card,omitempty"`
	Done    bool       `json:"done"`
}

// AnswerResult pairs the updated card with the next review
type AnswerResult struct {
	Answered *card.Card `json:"answered"`
	Next     *Review    `json:"next"`
}
