package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NoteID is a value object representing a unique note identifier.
// It is always a canonical lower-case random (v4) UUID string.
type NoteID struct {
	value string
}

// NewNoteID creates a new random NoteID
func NewNoteID() NoteID {
	return NoteID{value: uuid.New().String()}
}

// NewNoteIDFromString creates a NoteID from an existing string
func NewNoteIDFromString(id string) (NoteID, error) {
	if id == "" {
		return NoteID{}, errors.New("note ID cannot be empty")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return NoteID{}, errors.New("note ID must be a valid UUID")
	}
	return NoteID{value: parsed.String()}, nil
}

// String returns the string representation of the NoteID
func (id NoteID) String() string {
	return id.value
}

// Equals checks if two NoteIDs are equal
func (id NoteID) Equals(other NoteID) bool {
	return id.value == other.value
}

// IsZero checks if the NoteID is the zero value
func (id NoteID) IsZero() bool {
	return id.value == ""
}
