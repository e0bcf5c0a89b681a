package rest

import (
	"context"
	"net/http"
	"time"

	"share-note-backend/infrastructure/observability"
	"share-note-backend/interfaces/http/rest/handlers"
	"share-note-backend/interfaces/http/rest/middleware"
	"share-note-backend/pkg/auth"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger reports whether the note store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds the transport settings of the router
type RouterConfig struct {
	APIKey             string
	FrontendAddress    string
	RateLimitPerMinute int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Router creates and configures the HTTP router
type Router struct {
	config       RouterConfig
	noteHandler  *handlers.NoteHandler
	store        Pinger
	limiter      auth.RateLimiter
	collector    *observability.Collector
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance. limiter and collector may be
// nil to disable rate limiting and metrics.
func NewRouter(
	config RouterConfig,
	noteHandler *handlers.NoteHandler,
	store Pinger,
	limiter auth.RateLimiter,
	collector *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		config:       config,
		noteHandler:  noteHandler,
		store:        store,
		limiter:      limiter,
		collector:    collector,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestIDHeader)
	if rt.config.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	// Only the paired frontend may call cross-origin
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{rt.config.FrontendAddress},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{middleware.APIKeyHeader, "Content-Type", handlers.NotePasswordHeader},
		ExposedHeaders:   []string{chimiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("Not found"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("Not found"))
	})

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	router.Route("/note", func(r chi.Router) {
		if rt.limiter != nil && rt.config.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(rt.limiter, rt.config.RateLimitPerMinute, rt.errorHandler, rt.logger))
		}
		// Every method on /note is gated, including unknown ones
		r.Use(middleware.RequireAPIKey(rt.config.APIKey, rt.errorHandler))

		r.Post("/", rt.noteHandler.CreateNote)
		r.Get("/{noteID}", rt.noteHandler.ReadNote)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready only while the note store answers
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
