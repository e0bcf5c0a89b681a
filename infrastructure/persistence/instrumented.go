package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"share-note-backend/application/ports"
	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	"share-note-backend/infrastructure/observability"
	pkgerrors "share-note-backend/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStore records metrics and a span for every store call
type InstrumentedStore struct {
	next      ports.NoteStore
	backend   string
	collector *observability.Collector
	tracer    trace.Tracer
}

// NewInstrumentedStore wraps next. collector may be nil when metrics are off.
func NewInstrumentedStore(next ports.NoteStore, backend string, collector *observability.Collector) *InstrumentedStore {
	return &InstrumentedStore{
		next:      next,
		backend:   backend,
		collector: collector,
		tracer:    otel.Tracer("share-note-backend/infrastructure/persistence"),
	}
}

func (s *InstrumentedStore) Create(ctx context.Context, note *entities.Note) error {
	ctx, done := s.observe(ctx, "create", note.ID())
	err := s.next.Create(ctx, note)
	done(err)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	ctx, done := s.observe(ctx, "get", id)
	note, err := s.next.Get(ctx, id)
	done(err)
	return note, err
}

func (s *InstrumentedStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	ctx, done := s.observe(ctx, "consume", id)
	note, err := s.next.Consume(ctx, id, digest, now)
	done(err)
	return note, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, done := s.observe(ctx, "ping", valueobjects.NoteID{})
	err := s.next.Ping(ctx)
	done(err)
	return err
}

func (s *InstrumentedStore) observe(ctx context.Context, op string, id valueobjects.NoteID) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "NoteStore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", s.backend)),
	)
	if !id.IsZero() {
		span.SetAttributes(attribute.String("note.id", id.String()))
	}

	return ctx, func(err error) {
		status := OperationStatus(err)
		span.SetAttributes(attribute.String("store.status", status))
		if pkgerrors.IsInfrastructure(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		span.End()

		if s.collector != nil {
			s.collector.StoreOperations.WithLabelValues(op, s.backend, status).Inc()
			s.collector.StoreDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
		}
	}
}

// OperationStatus names the outcome of a store call for metrics labels
func OperationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entities.ErrNoteNotFound):
		return "not_found"
	case errors.Is(err, entities.ErrPasswordMismatch):
		return "mismatch"
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return strings.ToLower(string(appErr.Type))
	}
	return "error"
}
