package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	NoteID       *string
	CardID       *string
	SessionID    *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
