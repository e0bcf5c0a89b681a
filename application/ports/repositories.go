package ports

import (
	"context"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	"share-note-backend/domain/events"
)

// NoteStore defines the interface for note persistence.
// Adapters return entities.ErrNoteNotFound / entities.ErrPasswordMismatch for
// request outcomes and *errors.AppError for every infrastructure failure.
type NoteStore interface {
	// Create persists a new note. An existing record with the same id is
	// never overwritten.
	Create(ctx context.Context, note *entities.Note) error

	// Get returns a live note. Records with expires_at <= now are absent.
	Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error)

	// Consume atomically returns and deletes a live note whose digest
	// matches. A mismatching digest leaves the record untouched.
	Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }
