package di

import (
	"context"
	"fmt"
	"time"

	"share-note-backend/application/ports"
	"share-note-backend/application/services"
	"share-note-backend/infrastructure/config"
	"share-note-backend/infrastructure/messaging"
	"share-note-backend/infrastructure/messaging/eventbridge"
	"share-note-backend/infrastructure/observability"
	"share-note-backend/infrastructure/persistence"
	"share-note-backend/infrastructure/persistence/dynamodb"
	"share-note-backend/infrastructure/persistence/memory"
	"share-note-backend/infrastructure/persistence/postgres"
	redisstore "share-note-backend/infrastructure/persistence/redis"
	"share-note-backend/interfaces/http/rest"
	"share-note-backend/interfaces/http/rest/handlers"
	"share-note-backend/pkg/auth"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported Prometheus metric
const MetricsNamespace = "share_note"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideCollector creates the metrics collector, or nil when metrics are off
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(MetricsNamespace)
}

// ProvideAWSConfig creates AWS configuration. A local DynamoDB endpoint gets
// static credentials so no AWS account is needed.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideNoteStore builds the configured backend and wraps it with the
// deadline, circuit breaker and instrumentation decorators, innermost first.
func ProvideNoteStore(
	ctx context.Context,
	cfg *config.Config,
	client *awsdynamodb.Client,
	collector *observability.Collector,
	logger *zap.Logger,
) (ports.NoteStore, func(), error) {
	backend, cleanup, err := provideBackendStore(ctx, cfg, client, logger)
	if err != nil {
		return nil, nil, err
	}

	var store ports.NoteStore = persistence.NewTimeoutStore(backend, cfg.StoreTimeout)
	if cfg.CircuitBreakerEnabled {
		store = persistence.NewCircuitBreakerStore(
			store,
			persistence.DefaultCircuitBreakerConfig("note-store-"+cfg.StoreBackend),
			logger,
			breakerGauge(collector),
		)
	}
	store = persistence.NewInstrumentedStore(store, cfg.StoreBackend, collector)

	logger.Info("Note store ready",
		zap.String("backend", cfg.StoreBackend),
		zap.Duration("timeout", cfg.StoreTimeout),
		zap.Bool("circuitBreaker", cfg.CircuitBreakerEnabled),
		zap.String("readPolicy", cfg.ReadPolicy),
	)
	return store, cleanup, nil
}

func provideBackendStore(
	ctx context.Context,
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (ports.NoteStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store := memory.NewNoteStore(cfg.SweepInterval, logger)
		return store, func() { store.Close() }, nil

	case config.BackendDynamoDB:
		if cfg.DynamoDBEndpoint != "" {
			if err := dynamodb.EnsureTable(ctx, client, cfg.DynamoDBTable, logger); err != nil {
				return nil, nil, err
			}
		}
		return dynamodb.NewNoteStore(client, cfg.DynamoDBTable, logger), func() {}, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanup := func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return redisstore.NewNoteStore(rdb, cfg.RedisKeyPrefix, logger), cleanup, nil

	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := postgres.RunMigrations(migrateCtx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		store := postgres.NewNoteStore(db, cfg.SweepInterval, logger)
		cleanup := func() {
			store.Close()
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close database", zap.Error(err))
			}
		}
		return store, cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// breakerGauge mirrors breaker transitions into the BreakerState gauge
func breakerGauge(collector *observability.Collector) func(string, gobreaker.State) {
	if collector == nil {
		return nil
	}
	return func(name string, to gobreaker.State) {
		collector.BreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
func ProvideEventPublisher(
	client *awseventbridge.Client,
	cfg *config.Config,
	collector *observability.Collector,
	logger *zap.Logger,
) ports.EventPublisher {
	var publisher ports.EventPublisher = eventbridge.NoopPublisher{}
	if cfg.EventBusName != "" {
		publisher = eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	if collector != nil {
		publisher = messaging.NewMeteredPublisher(publisher, collector)
	}
	return publisher
}

// ProvideNoteService creates the note application service
func ProvideNoteService(
	store ports.NoteStore,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *services.NoteService {
	return services.NewNoteService(store, publisher, ports.SystemClock{}, cfg.DomainConfig(), logger)
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger)
}

// ProvideNoteHandler creates the note endpoints
func ProvideNoteHandler(
	service *services.NoteService,
	errorHandler *pkgerrors.ErrorHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *handlers.NoteHandler {
	return handlers.NewNoteHandler(service, errorHandler, cfg.MaxContentBytes, logger)
}

// ProvideRateLimiter creates the per-client limiter guarding /note
func ProvideRateLimiter(cfg *config.Config) (auth.RateLimiter, func()) {
	limiter := auth.NewIPRateLimiter(cfg.RateLimitPerMinute)
	return limiter, limiter.Close
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	noteHandler *handlers.NoteHandler,
	store ports.NoteStore,
	limiter auth.RateLimiter,
	collector *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(
		rest.RouterConfig{
			APIKey:             cfg.APIKey,
			FrontendAddress:    cfg.FrontendAddress,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			TrustProxyHeaders:  cfg.TrustProxyHeaders,
		},
		noteHandler,
		store,
		limiter,
		collector,
		errorHandler,
		logger,
	)
}
