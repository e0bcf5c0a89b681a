package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"share-note-backend/infrastructure/config"
	"share-note-backend/infrastructure/messaging"
	"share-note-backend/infrastructure/messaging/eventbridge"
	"share-note-backend/infrastructure/persistence"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:           "development",
		APIKey:                "test-key",
		FrontendAddress:       "http://localhost:4200",
		RateLimitPerMinute:    60,
		DefaultTTLSeconds:     900,
		MaxTTLSeconds:         86400,
		MaxContentBytes:       1024,
		ReadPolicy:            "once",
		StoreBackend:          config.BackendMemory,
		StoreTimeout:          time.Second,
		CircuitBreakerEnabled: true,
		AWSRegion:             "us-west-2",
		LogLevel:              "error",
		EnableMetrics:         true,
	}
}

func TestInitializeContainer_MemoryBackend(t *testing.T) {
	// Arrange
	cfg := memoryConfig()

	// Act
	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	// Assert
	assert.NotNil(t, container.Collector)
	assert.IsType(t, &persistence.InstrumentedStore{}, container.NoteStore)
	assert.IsType(t, &messaging.MeteredPublisher{}, container.Publisher)

	h := container.Router.Setup()
	create := httptest.NewRequest(http.MethodPost, "/note", strings.NewReader(`{"content":"wired"}`))
	create.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, create)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(container.Collector.NotesCreated))

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestProvideNoteStore_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "mongo"

	_, _, err := ProvideNoteStore(context.Background(), cfg, nil, nil, zap.NewNop())

	assert.ErrorContains(t, err, "unknown store backend")
}

func TestProvideCollector(t *testing.T) {
	cfg := memoryConfig()
	assert.NotNil(t, ProvideCollector(cfg))

	cfg.EnableMetrics = false
	assert.Nil(t, ProvideCollector(cfg))
}

func TestProvideEventPublisher(t *testing.T) {
	cfg := memoryConfig()
	cfg.EnableMetrics = false

	assert.Equal(t, eventbridge.NoopPublisher{}, ProvideEventPublisher(nil, cfg, nil, zap.NewNop()))

	cfg.EventBusName = "notes"
	assert.IsType(t, &eventbridge.Publisher{}, ProvideEventPublisher(nil, cfg, nil, zap.NewNop()))
}

func TestBreakerGauge(t *testing.T) {
	assert.Nil(t, breakerGauge(nil))

	collector := ProvideCollector(memoryConfig())
	breakerGauge(collector)("note-store-memory", gobreaker.StateOpen)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.BreakerState.WithLabelValues("note-store-memory")))
}
