package card

// ListOptions filters card listings and review queues.
type ListOptions struct {
	NoteID string   `json:"note_id,omitempty"`
	Tags   []string `json:"tags,omitempty"` // every tag must match the card or its note
	Query  string   `json:"query,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}
