package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	insertPattern  = `(?s)^INSERT\s+INTO\s+notes\s*\(id,\s*content,\s*password_hash,\s*created_at,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	selectPattern  = `(?s)^SELECT\s+content,\s*password_hash,\s*created_at,\s*expires_at\s+FROM\s+notes\s+WHERE\s+id\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2$`
	consumePattern = `(?s)^DELETE\s+FROM\s+notes\s+WHERE\s+id\s*=\s*\$1\s+AND\s+password_hash\s*=\s*\$2\s+AND\s+expires_at\s*>\s*\$3\s+RETURNING\s+content,\s*password_hash,\s*created_at,\s*expires_at$`
	existsPattern  = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+notes\s+WHERE\s+id\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\)$`
	sweepPattern   = `(?s)^DELETE\s+FROM\s+notes\s+WHERE\s+expires_at\s*<=\s*\$1$`
)

var (
	t0          = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	noteColumns = []string{"content", "password_hash", "created_at", "expires_at"}
)

func newStoreWithMock(t *testing.T) (*NoteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewNoteStore(db, 0, zap.NewNop())
	store.now = func() time.Time { return t0 }
	return store, mock
}

func newNote(t *testing.T, password string) *entities.Note {
	t.Helper()
	note, err := entities.NewNote("body", valueobjects.DigestPassword(password), t0, time.Minute)
	require.NoError(t, err)
	return note
}

func TestNoteStore_Create(t *testing.T) {
	// Arrange
	store, mock := newStoreWithMock(t)
	note := newNote(t, "pw")
	mock.ExpectExec(insertPattern).
		WithArgs(note.ID().String(), "body", valueobjects.DigestPassword("pw").String(), t0, t0.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Act
	err := store.Create(context.Background(), note)

	// Assert
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteStore_CreateDuplicateIsInternal(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(insertPattern).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Create(context.Background(), newNote(t, ""))

	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))
}

func TestNoteStore_Get(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := valueobjects.NewNoteID()
	mock.ExpectQuery(selectPattern).
		WithArgs(id.String(), t0).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow("body", "", t0, t0.Add(time.Minute)))
	mock.ExpectQuery(selectPattern).
		WithArgs(id.String(), t0).
		WillReturnRows(sqlmock.NewRows(noteColumns))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Content())
	assert.True(t, got.ID().Equals(id))

	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, entities.ErrNoteNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteStore_Consume(t *testing.T) {
	digest := valueobjects.DigestPassword("pw")
	now := t0.Add(10 * time.Second)

	t.Run("deleted", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		id := valueobjects.NewNoteID()
		mock.ExpectQuery(consumePattern).
			WithArgs(id.String(), digest.String(), now).
			WillReturnRows(sqlmock.NewRows(noteColumns).AddRow("body", digest.String(), t0, t0.Add(time.Minute)))

		got, err := store.Consume(context.Background(), id, digest, now)

		require.NoError(t, err)
		assert.Equal(t, "body", got.Content())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatch", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		id := valueobjects.NewNoteID()
		mock.ExpectQuery(consumePattern).WillReturnRows(sqlmock.NewRows(noteColumns))
		mock.ExpectQuery(existsPattern).
			WithArgs(id.String(), now).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := store.Consume(context.Background(), id, digest, now)

		assert.ErrorIs(t, err, entities.ErrPasswordMismatch)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent or expired", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(consumePattern).WillReturnRows(sqlmock.NewRows(noteColumns))
		mock.ExpectQuery(existsPattern).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := store.Consume(context.Background(), valueobjects.NewNoteID(), digest, now)

		assert.ErrorIs(t, err, entities.ErrNoteNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database failure", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(consumePattern).WillReturnError(&pgconn.PgError{Code: "57P01"})

		_, err := store.Consume(context.Background(), valueobjects.NewNoteID(), digest, now)

		assert.True(t, pkgerrors.IsUnavailable(err))
	})
}

func TestNoteStore_Sweep(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(sweepPattern).WithArgs(t0).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteStore_Ping(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(pingError{})

	assert.NoError(t, store.Ping(context.Background()))
	assert.Error(t, store.Ping(context.Background()))
}

type pingError struct{}

func (pingError) Error() string { return "server closed the connection" }

func TestNoteStore_TranslateError(t *testing.T) {
	store := &NoteStore{}

	tests := []struct {
		name string
		err  error
		want pkgerrors.ErrorType
	}{
		{"deadline", context.DeadlineExceeded, pkgerrors.ErrorTypeTimeout},
		{"canceled", context.Canceled, pkgerrors.ErrorTypeUnavailable},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, pkgerrors.ErrorTypeTimeout},
		{"connection failure", &pgconn.PgError{Code: "08006"}, pkgerrors.ErrorTypeUnavailable},
		{"auth failure", &pgconn.PgError{Code: "28P01"}, pkgerrors.ErrorTypeUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, pkgerrors.ErrorTypeUnavailable},
		{"missing database", &pgconn.PgError{Code: "3D000"}, pkgerrors.ErrorTypeUnavailable},
		{"syntax", &pgconn.PgError{Code: "42601"}, pkgerrors.ErrorTypeInternal},
		{"closed pool", sql.ErrConnDone, pkgerrors.ErrorTypeUnavailable},
		{"unknown", errors.New("boom"), pkgerrors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.translateError("get", tt.err)
			assert.True(t, pkgerrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestNoteStore_CloseStopsSweeper(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	store := NewNoteStore(db, time.Hour, zap.NewNop())

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
