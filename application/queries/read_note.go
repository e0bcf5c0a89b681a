package queries

import "errors"

// ReadNoteQuery represents a query to read a single note
type ReadNoteQuery struct {
	NoteID   string
	Password string
}

// Validate validates the ReadNoteQuery
func (q ReadNoteQuery) Validate() error {
	if q.NoteID == "" {
		return errors.New("note ID is required")
	}
	return nil
}

// ReadNoteResult represents the result of reading a note
type ReadNoteResult struct {
	Content string `json:"content"`
}
