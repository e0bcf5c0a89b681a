package di

import (
	"share-note-backend/application/ports"
	"share-note-backend/application/services"
	"share-note-backend/infrastructure/config"
	"share-note-backend/infrastructure/observability"
	"share-note-backend/interfaces/http/rest"
	"share-note-backend/interfaces/http/rest/handlers"
	"share-note-backend/pkg/auth"
	pkgerrors "share-note-backend/pkg/errors"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Collector    *observability.Collector
	NoteStore    ports.NoteStore
	Publisher    ports.EventPublisher
	NoteService  *services.NoteService
	ErrorHandler *pkgerrors.ErrorHandler
	NoteHandler  *handlers.NoteHandler
	RateLimiter  auth.RateLimiter
	Router       *rest.Router
}
