// Package postgres implements the note store on PostgreSQL. Expiry is
// enforced in every query and expired rows are removed by a sweeper.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	insertNoteQuery = `INSERT INTO notes (id, content, password_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	selectLiveNoteQuery = `SELECT content, password_hash, created_at, expires_at FROM notes
		WHERE id = $1 AND expires_at > $2`

	consumeNoteQuery = `DELETE FROM notes
		WHERE id = $1 AND password_hash = $2 AND expires_at > $3
		RETURNING content, password_hash, created_at, expires_at`

	liveNoteExistsQuery = `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1 AND expires_at > $2)`

	sweepQuery = `DELETE FROM notes WHERE expires_at <= $1`
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// NoteStore implements ports.NoteStore on a notes table
type NoteStore struct {
	db     DBTX
	now    func() time.Time
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewNoteStore creates a new PostgreSQL note store. A positive sweepInterval
// starts the expired-row sweeper; call Close to stop it.
func NewNoteStore(db DBTX, sweepInterval time.Duration, logger *zap.Logger) *NoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NoteStore{
		db:     db,
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

// Create inserts the note. A primary key clash is never an overwrite.
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) error {
	_, err := s.db.ExecContext(ctx, insertNoteQuery,
		note.ID().String(),
		note.Content(),
		note.PasswordHash().String(),
		note.CreatedAt(),
		note.ExpiresAt(),
	)
	return s.translateError("create", err)
}

// Get reads a live note
func (s *NoteStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	note, err := scanNote(id, s.db.QueryRowContext(ctx, selectLiveNoteQuery, id.String(), s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNoteNotFound
	}
	if err != nil {
		return nil, s.translateError("get", err)
	}
	return note, nil
}

// Consume deletes a matching live note and returns it. Only when nothing
// was deleted does a second query decide between not found and mismatch.
func (s *NoteStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	note, err := scanNote(id, s.db.QueryRowContext(ctx, consumeNoteQuery, id.String(), digest.String(), now))
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, s.translateError("consume", err)
	}

	var live bool
	if err := s.db.QueryRowContext(ctx, liveNoteExistsQuery, id.String(), now).Scan(&live); err != nil {
		return nil, s.translateError("consume", err)
	}
	if !live {
		return nil, entities.ErrNoteNotFound
	}
	return nil, entities.ErrPasswordMismatch
}

// Ping checks the database answers
func (s *NoteStore) Ping(ctx context.Context) error {
	return s.translateError("ping", s.db.PingContext(ctx))
}

// Sweep deletes expired rows and returns how many were removed
func (s *NoteStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, sweepQuery, s.now())
	if err != nil {
		return 0, s.translateError("sweep", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.translateError("sweep", err)
	}
	return n, nil
}

// Close stops the sweeper. The database handle belongs to the caller.
func (s *NoteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
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
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := s.Sweep(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("Expired note sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("Swept expired notes", zap.Int64("count", n))
			}
		}
	}
}

// translateError maps every database failure into the error taxonomy
func (s *NoteStore) translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	cause := fmt.Errorf("postgres %s: %w", op, err)

	if appErr := pkgerrors.FromContext(err); appErr != nil {
		return appErr.WithCause(cause)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014":
			return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "28"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57P0"),
			pgErr.Code == "3D000":
			return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
		}
		// 23505 on Create lands here too: a random id collided
		return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
	}

	if pgconn.Timeout(err) {
		return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) {
		return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
	}

	return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
}

func scanNote(id valueobjects.NoteID, row *sql.Row) (*entities.Note, error) {
	var (
		content      string
		passwordHash string
		createdAt    time.Time
		expiresAt    time.Time
	)
	if err := row.Scan(&content, &passwordHash, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	return entities.ReconstructNote(
		id,
		content,
		valueobjects.PasswordDigestFromStored(passwordHash),
		createdAt,
		expiresAt,
	), nil
}
