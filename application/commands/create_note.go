package commands

import "errors"

// CreateNoteCommand represents a command to create a note
type CreateNoteCommand struct {
	Content    string
	Password   string
	TTLSeconds *int
}

// Validate validates the CreateNoteCommand
func (c CreateNoteCommand) Validate() error {
	if c.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// CreateNoteResult represents the result of creating a note
type CreateNoteResult struct {
	ID        string `json:"id"`
	ExpiresAt string `json:"expires_at"`
}
