// Package persistence holds the decorators wrapped around every concrete
// note store: per-call timeout, circuit breaker, and instrumentation.
package persistence

import (
	"context"
	"errors"
	"time"

	"share-note-backend/application/ports"
	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"
)

// TimeoutStore bounds every store call by a fixed deadline
type TimeoutStore struct {
	next    ports.NoteStore
	timeout time.Duration
}

// NewTimeoutStore wraps next. A non-positive timeout disables the bound.
func NewTimeoutStore(next ports.NoteStore, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{next: next, timeout: timeout}
}

func (s *TimeoutStore) Create(ctx context.Context, note *entities.Note) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return deadline(ctx, s.next.Create(ctx, note))
}

func (s *TimeoutStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	note, err := s.next.Get(ctx, id)
	return note, deadline(ctx, err)
}

func (s *TimeoutStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	note, err := s.next.Consume(ctx, id, digest, now)
	return note, deadline(ctx, err)
}

func (s *TimeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return deadline(ctx, s.next.Ping(ctx))
}

func (s *TimeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// deadline makes sure an expired deadline surfaces as a timeout even when
// the adapter returned something unclassified.
func deadline(ctx context.Context, err error) error {
	if err == nil || pkgerrors.GetAppError(err) != nil || isOutcome(err) {
		return err
	}
	if ctx.Err() != nil {
		if appErr := pkgerrors.FromContext(ctx.Err()); appErr != nil {
			return appErr.WithCause(err)
		}
	}
	return err
}

// isOutcome reports whether err is a normal request outcome rather than a
// store failure.
func isOutcome(err error) bool {
	return errors.Is(err, entities.ErrNoteNotFound) || errors.Is(err, entities.ErrPasswordMismatch)
}
