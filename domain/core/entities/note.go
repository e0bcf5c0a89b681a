package entities

import (
	"errors"
	"time"

	"share-note-backend/domain/core/valueobjects"
)

var (
	// ErrNoteNotFound means no live record exists for the id: it never
	// existed, it expired, or it was already consumed.
	ErrNoteNotFound = errors.New("note not found")

	// ErrPasswordMismatch means the supplied password digest does not
	// match the stored one.
	ErrPasswordMismatch = errors.New("note password mismatch")
)

// Note is a single shared text payload with a fixed expiry.
type Note struct {
	id           valueobjects.NoteID
	content      string
	passwordHash valueobjects.PasswordDigest
	createdAt    time.Time
	expiresAt    time.Time
}

// NewNote creates a note that lives for ttl from createdAt. Bounds on
// content and ttl are enforced by the caller's domain config.
func NewNote(content string, password valueobjects.PasswordDigest, createdAt time.Time, ttl time.Duration) (*Note, error) {
	if content == "" {
		return nil, errors.New("content cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}

	createdAt = createdAt.UTC().Truncate(time.Second)
	return &Note{
		id:           valueobjects.NewNoteID(),
		content:      content,
		passwordHash: password,
		createdAt:    createdAt,
		expiresAt:    createdAt.Add(ttl),
	}, nil
}

// ReconstructNote rebuilds a note from store data
func ReconstructNote(
	id valueobjects.NoteID,
	content string,
	passwordHash valueobjects.PasswordDigest,
	createdAt time.Time,
	expiresAt time.Time,
) *Note {
	return &Note{
		id:           id,
		content:      content,
		passwordHash: passwordHash,
		createdAt:    createdAt.UTC(),
		expiresAt:    expiresAt.UTC(),
	}
}

// ID returns the note identifier
func (n *Note) ID() valueobjects.NoteID { return n.id }

// Content returns the stored payload
func (n *Note) Content() string { return n.content }

// PasswordHash returns the stored digest
func (n *Note) PasswordHash() valueobjects.PasswordDigest { return n.passwordHash }

// CreatedAt returns the creation time
func (n *Note) CreatedAt() time.Time { return n.createdAt }

// ExpiresAt returns the instant after which the note is gone
func (n *Note) ExpiresAt() time.Time { return n.expiresAt }

// IsExpired reports whether the note is gone at now, whatever the store's
// own deletion timing.
func (n *Note) IsExpired(now time.Time) bool {
	return !now.Before(n.expiresAt)
}

// Unlock checks a caller digest against the stored one.
func (n *Note) Unlock(digest valueobjects.PasswordDigest) error {
	if !n.passwordHash.Matches(digest) {
		return ErrPasswordMismatch
	}
	return nil
}
