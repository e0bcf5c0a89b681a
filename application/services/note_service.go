package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"share-note-backend/application/commands"
	"share-note-backend/application/ports"
	"share-note-backend/application/queries"
	"share-note-backend/domain/config"
	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	"share-note-backend/domain/events"
	pkgerrors "share-note-backend/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// User-facing messages. Forbidden is identical for every stored state so a
// wrong password never reveals anything about the note.
const (
	MessageNotFound  = "Note does not exist or has expired."
	MessageForbidden = "Invalid note password"
)

const tracerName = "share-note-backend/application/services"

// NoteService implements the create and read use cases and owns the
// access-control and expiry contract.
type NoteService struct {
	store     ports.NoteStore
	publisher ports.EventPublisher
	clock     ports.Clock
	rules     *config.DomainConfig
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewNoteService creates a new note service
func NewNoteService(
	store ports.NoteStore,
	publisher ports.EventPublisher,
	clock ports.Clock,
	rules *config.DomainConfig,
	logger *zap.Logger,
) *NoteService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	return &NoteService{
		store:     store,
		publisher: publisher,
		clock:     clock,
		rules:     rules,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// Create validates and persists a new note
func (s *NoteService) Create(ctx context.Context, cmd commands.CreateNoteCommand) (*commands.CreateNoteResult, error) {
	ctx, span := s.tracer.Start(ctx, "NoteService.Create")
	defer span.End()

	// Every validation failure is reported before the store is touched
	if err := cmd.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	if len(cmd.Content) > s.rules.MaxContentBytes {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("content must not exceed %d bytes", s.rules.MaxContentBytes))
	}
	ttl, err := s.rules.ResolveTTL(cmd.TTLSeconds)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	note, err := entities.NewNote(cmd.Content, valueobjects.DigestPassword(cmd.Password), s.clock.Now(), ttl)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	span.SetAttributes(
		attribute.String("note.id", note.ID().String()),
		attribute.Int64("note.ttl_seconds", int64(ttl/time.Second)),
		attribute.Bool("note.password_protected", !note.PasswordHash().IsEmpty()),
	)

	if err := s.store.Create(ctx, note); err != nil {
		return nil, s.fail(span, "create", note.ID(), err)
	}

	s.logger.Info("Note created",
		zap.String("noteID", note.ID().String()),
		zap.Time("expiresAt", note.ExpiresAt()),
		zap.Bool("passwordProtected", !note.PasswordHash().IsEmpty()),
	)

	s.publish(ctx, events.NewNoteCreated(note.ID(), note.ExpiresAt(), note.CreatedAt()))

	return &commands.CreateNoteResult{
		ID:        note.ID().String(),
		ExpiresAt: note.ExpiresAt().Format(time.RFC3339),
	}, nil
}

// Read returns a note's content when the password matches. Under the
// read-once policy the note is gone after the first successful read.
func (s *NoteService) Read(ctx context.Context, q queries.ReadNoteQuery) (*queries.ReadNoteResult, error) {
	ctx, span := s.tracer.Start(ctx, "NoteService.Read")
	defer span.End()

	if err := q.Validate(); err != nil {
		return nil, pkgerrors.NewNotFoundError(MessageNotFound)
	}
	// Ids that cannot have come from Create are not looked up
	id, err := valueobjects.NewNoteIDFromString(q.NoteID)
	if err != nil {
		return nil, pkgerrors.NewNotFoundError(MessageNotFound)
	}

	span.SetAttributes(
		attribute.String("note.id", id.String()),
		attribute.String("note.read_policy", string(s.rules.ReadPolicy)),
	)

	digest := valueobjects.DigestPassword(q.Password)
	now := s.clock.Now()

	var note *entities.Note
	switch s.rules.ReadPolicy {
	case config.ReadUntilExpiry:
		note, err = s.store.Get(ctx, id)
		if err == nil {
			switch {
			case note.IsExpired(now):
				err = entities.ErrNoteNotFound
			default:
				err = note.Unlock(digest)
			}
		}
	default:
		note, err = s.store.Consume(ctx, id, digest, now)
	}
	if err != nil {
		return nil, s.fail(span, "read", id, err)
	}

	if s.rules.ReadPolicy != config.ReadUntilExpiry {
		s.logger.Info("Note consumed", zap.String("noteID", id.String()))
		s.publish(ctx, events.NewNoteConsumed(id, note.ExpiresAt(), now))
	} else {
		s.logger.Debug("Note read", zap.String("noteID", id.String()))
	}

	return &queries.ReadNoteResult{Content: note.Content()}, nil
}

// fail maps a store result into the error taxonomy
func (s *NoteService) fail(span trace.Span, op string, id valueobjects.NoteID, err error) error {
	var mapped error
	switch {
	case errors.Is(err, entities.ErrNoteNotFound):
		mapped = pkgerrors.NewNotFoundError(MessageNotFound)
	case errors.Is(err, entities.ErrPasswordMismatch):
		mapped = pkgerrors.NewForbiddenError(MessageForbidden)
	case pkgerrors.GetAppError(err) != nil:
		mapped = err
	default:
		if ctxErr := pkgerrors.FromContext(err); ctxErr != nil {
			mapped = ctxErr
		} else {
			mapped = pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(err)
		}
	}

	if pkgerrors.IsInfrastructure(mapped) {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		s.logger.Error("Note store operation failed",
			zap.String("operation", op),
			zap.String("noteID", id.String()),
			zap.Error(err),
		)
	}
	return mapped
}

// publish emits lifecycle events. Failures are logged and never fail the
// request.
func (s *NoteService) publish(ctx context.Context, evts ...events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evts); err != nil {
		s.logger.Warn("Failed to publish note events",
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
}
