// Package memory provides an in-process NoteStore for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"go.uber.org/zap"
)

// NoteStore keeps notes in a map guarded by a mutex. Expired notes are
// treated as absent on every call and removed by a background sweeper.
type NoteStore struct {
	mu    sync.Mutex
	notes map[string]*entities.Note
	now   func() time.Time

	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewNoteStore creates an empty store. A positive sweepInterval starts the
// sweeper; call Close to stop it.
func NewNoteStore(sweepInterval time.Duration, logger *zap.Logger) *NoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NoteStore{
		notes:  make(map[string]*entities.Note),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}
	return s
}

// WithClock replaces the store's notion of now. Used by tests.
func (s *NoteStore) WithClock(now func() time.Time) *NoteStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Create stores a note unless its id is already taken
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) error {
	if err := translateError("create", ctx.Err()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := note.ID().String()
	if existing, ok := s.notes[key]; ok && !existing.IsExpired(s.now()) {
		return pkgerrors.NewInternalError(pkgerrors.MessageInternal)
	}
	s.notes[key] = note
	return nil
}

// Get returns a live note
func (s *NoteStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	if err := translateError("get", ctx.Err()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.live(id.String())
	if !ok {
		return nil, entities.ErrNoteNotFound
	}
	return note, nil
}

// Consume returns and deletes a live note whose digest matches
func (s *NoteStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	if err := translateError("consume", ctx.Err()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.String()
	note, ok := s.notes[key]
	if !ok || note.IsExpired(now) {
		return nil, entities.ErrNoteNotFound
	}
	if err := note.Unlock(digest); err != nil {
		return nil, err
	}
	delete(s.notes, key)
	return note, nil
}

// Ping always succeeds for a live context
func (s *NoteStore) Ping(ctx context.Context) error {
	return translateError("ping", ctx.Err())
}

// Len returns the number of stored records, live or not
func (s *NoteStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// Sweep removes expired notes and returns how many were removed
func (s *NoteStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, note := range s.notes {
		if note.IsExpired(now) {
			delete(s.notes, key)
			removed++
		}
	}
	return removed
}

// Close stops the sweeper
func (s *NoteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// live looks a note up, dropping it if expired (must be called with lock held)
func (s *NoteStore) live(key string) (*entities.Note, bool) {
	note, ok := s.notes[key]
	if !ok {
		return nil, false
	}
	if note.IsExpired(s.now()) {
		delete(s.notes, key)
		return nil, false
	}
	return note, true
}

func (s *NoteStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Swept expired notes", zap.Int("count", n))
			}
		}
	}
}

// translateError maps the only failure this store has, a dead context
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	cause := fmt.Errorf("memory %s: %w", op, err)
	if appErr := pkgerrors.FromContext(cause); appErr != nil {
		return appErr
	}
	return pkgerrors.NewInternalError(pkgerrors.MessageInternal).
		WithCause(cause)
}
