package note

import "time"

// DefaultPath is the note that holds cards registered without one.
const DefaultPath = "Inbox"

// Note owns a set of cards: a markdown file with flashcards or an image
// with occlusion masks
type Note struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteSummary is a lightweight representation for listing
type NoteSummary struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	CardCount int       `json:"card_count"`
	NewCount  int       `json:"new_count"`
	DueCount  int       `json:"due_count"`
	CreatedAt time.Time `json:"created_at"`
}
