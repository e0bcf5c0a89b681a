// Package redis implements the note store on Redis. Notes are JSON strings
// written with SET NX and an absolute expiry, so Redis drops them natively.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// consumeScript returns {0} when the note is absent or expired, {2} on a
// digest mismatch, and {1, doc} after deleting a matching note.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return {0}
end
local doc = cjson.decode(raw)
if tonumber(doc.expires_at) <= tonumber(ARGV[2]) then
  return {0}
end
if doc.password_hash ~= ARGV[1] then
  return {2}
end
redis.call('DEL', KEYS[1])
return {1, raw}
`)

const (
	consumeNotFound = 0
	consumeOK       = 1
	consumeMismatch = 2
)

// noteDocument is the stored JSON shape of a note
type noteDocument struct {
	Content      string `json:"content"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    int64  `json:"expires_at"`
}

// NoteStore implements ports.NoteStore on Redis
type NoteStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
	logger    *zap.Logger
}

// NewNoteStore creates a new Redis note store
func NewNoteStore(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) *NoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Create writes the note only if the key is free
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) error {
	raw, err := json.Marshal(noteDocument{
		Content:      note.Content(),
		PasswordHash: note.PasswordHash().String(),
		CreatedAt:    note.CreatedAt().Format(time.RFC3339),
		ExpiresAt:    note.ExpiresAt().Unix(),
	})
	if err != nil {
		return s.translateError("create", err)
	}

	err = s.client.SetArgs(ctx, s.key(note.ID()), raw, redis.SetArgs{
		Mode:     "NX",
		ExpireAt: note.ExpiresAt(),
	}).Err()
	if errors.Is(err, redis.Nil) {
		// NX refused the write: a random id collided with a live key
		return pkgerrors.NewInternalError(pkgerrors.MessageInternal).
			WithCause(fmt.Errorf("redis create: key %s already exists", s.key(note.ID())))
	}
	if err != nil {
		return s.translateError("create", err)
	}
	return nil
}

// Get reads a live note
func (s *NoteStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entities.ErrNoteNotFound
	}
	if err != nil {
		return nil, s.translateError("get", err)
	}

	note, err := decode(id, raw)
	if err != nil {
		return nil, s.translateError("get", err)
	}
	if note.IsExpired(s.now()) {
		return nil, entities.ErrNoteNotFound
	}
	return note, nil
}

// Consume runs the check-and-delete as one Lua script
func (s *NoteStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	res, err := consumeScript.Run(ctx, s.client,
		[]string{s.key(id)},
		digest.String(), strconv.FormatInt(now.Unix(), 10),
	).Slice()
	if err != nil {
		return nil, s.translateError("consume", err)
	}
	if len(res) == 0 {
		return nil, s.translateError("consume", errors.New("empty script reply"))
	}

	status, _ := res[0].(int64)
	switch status {
	case consumeNotFound:
		return nil, entities.ErrNoteNotFound
	case consumeMismatch:
		return nil, entities.ErrPasswordMismatch
	case consumeOK:
		if len(res) < 2 {
			return nil, s.translateError("consume", errors.New("script reply missing document"))
		}
		raw, _ := res[1].(string)
		note, err := decode(id, []byte(raw))
		if err != nil {
			return nil, s.translateError("consume", err)
		}
		return note, nil
	default:
		return nil, s.translateError("consume", fmt.Errorf("unexpected script status %v", res[0]))
	}
}

// Ping checks the server answers
func (s *NoteStore) Ping(ctx context.Context) error {
	return s.translateError("ping", s.client.Ping(ctx).Err())
}

func (s *NoteStore) key(id valueobjects.NoteID) string {
	return s.keyPrefix + "note:" + id.String()
}

// translateError maps every Redis failure into the error taxonomy
func (s *NoteStore) translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	cause := fmt.Errorf("redis %s: %w", op, err)

	if appErr := pkgerrors.FromContext(err); appErr != nil {
		return appErr.WithCause(cause)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
		}
		return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
	}

	if errors.Is(err, redis.ErrClosed) {
		return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection pool timeout"),
		strings.Contains(msg, "connection pool exhausted"),
		strings.HasPrefix(msg, "NOAUTH"),
		strings.HasPrefix(msg, "WRONGPASS"),
		strings.HasPrefix(msg, "LOADING"),
		strings.HasPrefix(msg, "MASTERDOWN"),
		strings.HasPrefix(msg, "CLUSTERDOWN"),
		strings.HasPrefix(msg, "TRYAGAIN"):
		return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
	}

	return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
}

func decode(id valueobjects.NoteID, raw []byte) (*entities.Note, error) {
	var doc noteDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode note document: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, doc.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	return entities.ReconstructNote(
		id,
		doc.Content,
		valueobjects.PasswordDigestFromStored(doc.PasswordHash),
		createdAt,
		time.Unix(doc.ExpiresAt, 0),
	), nil
}
