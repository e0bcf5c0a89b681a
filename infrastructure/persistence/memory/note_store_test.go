package memory

import (
	"context"
	"testing"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newNote(t *testing.T, password string, ttl time.Duration) *entities.Note {
	t.Helper()
	note, err := entities.NewNote("content", valueobjects.DigestPassword(password), t0, ttl)
	require.NoError(t, err)
	return note
}

func newStore(now *time.Time) *NoteStore {
	return NewNoteStore(0, zap.NewNop()).WithClock(func() time.Time { return *now })
}

func TestNoteStore_CreateAndGet(t *testing.T) {
	// Arrange
	now := t0
	store := newStore(&now)
	note := newNote(t, "", time.Minute)
	ctx := context.Background()

	// Act
	require.NoError(t, store.Create(ctx, note))
	got, err := store.Get(ctx, note.ID())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "content", got.Content())
}

func TestNoteStore_CreateNeverOverwritesLiveNote(t *testing.T) {
	now := t0
	store := newStore(&now)
	note := newNote(t, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, note))
	err := store.Create(ctx, note)

	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))
}

func TestNoteStore_GetTreatsExpiredAsAbsent(t *testing.T) {
	now := t0
	store := newStore(&now)
	note := newNote(t, "", time.Second)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, note))

	now = t0.Add(time.Second)
	_, err := store.Get(ctx, note.ID())

	assert.ErrorIs(t, err, entities.ErrNoteNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestNoteStore_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("matching digest removes the note", func(t *testing.T) {
		now := t0
		store := newStore(&now)
		note := newNote(t, "pw", time.Minute)
		require.NoError(t, store.Create(ctx, note))

		got, err := store.Consume(ctx, note.ID(), valueobjects.DigestPassword("pw"), now)

		require.NoError(t, err)
		assert.Equal(t, "content", got.Content())
		_, err = store.Consume(ctx, note.ID(), valueobjects.DigestPassword("pw"), now)
		assert.ErrorIs(t, err, entities.ErrNoteNotFound)
	})

	t.Run("mismatch keeps the note", func(t *testing.T) {
		now := t0
		store := newStore(&now)
		note := newNote(t, "pw", time.Minute)
		require.NoError(t, store.Create(ctx, note))

		_, err := store.Consume(ctx, note.ID(), valueobjects.DigestPassword("bad"), now)

		assert.ErrorIs(t, err, entities.ErrPasswordMismatch)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("expired is not found whatever the digest", func(t *testing.T) {
		now := t0
		store := newStore(&now)
		note := newNote(t, "pw", time.Minute)
		require.NoError(t, store.Create(ctx, note))

		_, err := store.Consume(ctx, note.ID(), valueobjects.DigestPassword("bad"), t0.Add(time.Minute))

		assert.ErrorIs(t, err, entities.ErrNoteNotFound)
	})
}

func TestNoteStore_Sweep(t *testing.T) {
	now := t0
	store := newStore(&now)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newNote(t, "", time.Second)))
	require.NoError(t, store.Create(ctx, newNote(t, "", time.Hour)))

	now = t0.Add(time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestNoteStore_DeadContext(t *testing.T) {
	now := t0
	store := newStore(&now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Create(ctx, newNote(t, "", time.Minute))
	assert.True(t, pkgerrors.IsUnavailable(err))

	deadline, cancel2 := context.WithDeadline(context.Background(), t0)
	defer cancel2()
	_, err = store.Get(deadline, valueobjects.NewNoteID())
	assert.True(t, pkgerrors.IsTimeout(err))

	assert.Error(t, store.Ping(ctx))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNoteStore_SweeperStopsOnClose(t *testing.T) {
	store := NewNoteStore(time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		store.Close()
		store.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
