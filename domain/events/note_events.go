package events

import (
	"time"

	"share-note-backend/domain/core/valueobjects"
)

// DomainEvent is something that has happened to a note.
// Events never carry note content or password material.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeNoteCreated  = "note.created"
	TypeNoteConsumed = "note.consumed"
)

// NoteCreated is raised when a note has been persisted
type NoteCreated struct {
	BaseEvent
	NoteID    string    `json:"note_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewNoteCreated creates a NoteCreated event
func NewNoteCreated(noteID valueobjects.NoteID, expiresAt, timestamp time.Time) NoteCreated {
	return NoteCreated{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   TypeNoteCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID:    noteID.String(),
		ExpiresAt: expiresAt,
	}
}

// NoteConsumed is raised when a read-once note has been read and deleted
type NoteConsumed struct {
	BaseEvent
	NoteID    string    `json:"note_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewNoteConsumed creates a NoteConsumed event
func NewNoteConsumed(noteID valueobjects.NoteID, expiresAt, timestamp time.Time) NoteConsumed {
	return NoteConsumed{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   TypeNoteConsumed,
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID:    noteID.String(),
		ExpiresAt: expiresAt,
	}
}
