package persistence

import (
	"context"
	"errors"
	"time"

	"share-note-backend/application/ports"
	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         3,
		Interval:            30 * time.Second,
		Timeout:             15 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreakerStore stops calling an unhealthy store for a while. It
// never retries: every failure still surfaces to the caller at once.
type CircuitBreakerStore struct {
	next ports.NoteStore
	cb   *gobreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps next. onStateChange may be nil.
func NewCircuitBreakerStore(
	next ports.NoteStore,
	config CircuitBreakerConfig,
	logger *zap.Logger,
	onStateChange func(name string, to gobreaker.State),
) *CircuitBreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if onStateChange != nil {
				onStateChange(name, to)
			}
		},
		// Only an unhealthy store counts against the breaker
		IsSuccessful: func(err error) bool {
			return !pkgerrors.IsUnavailable(err) && !pkgerrors.IsTimeout(err)
		},
	})
	return &CircuitBreakerStore{next: next, cb: cb}
}

// State returns the breaker's current state
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *CircuitBreakerStore) Create(ctx context.Context, note *entities.Note) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.next.Create(ctx, note)
	})
	return err
}

func (s *CircuitBreakerStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*entities.Note), nil
}

func (s *CircuitBreakerStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.next.Consume(ctx, id, digest, now)
	})
	if err != nil {
		return nil, err
	}
	return res.(*entities.Note), nil
}

// Ping bypasses the breaker so readiness reflects the store itself
func (s *CircuitBreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *CircuitBreakerStore) execute(req func() (interface{}, error)) (interface{}, error) {
	res, err := s.cb.Execute(req)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(err)
	}
	return res, err
}
