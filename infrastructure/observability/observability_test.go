package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"", zapcore.InfoLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"DEBUG", zapcore.DebugLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{" error ", zapcore.ErrorLevel, true},
		{"verbose", zapcore.ErrorLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewLogger(t *testing.T) {
	dev, err := NewLogger("development", "debug")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := NewLogger("production", "bogus")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, prod.Core().Enabled(zapcore.ErrorLevel))
}

func TestWarnInvalidLevel_ReachesOperator(t *testing.T) {
	// Arrange
	atom := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	core, logs := observer.New(atom)
	logger := zap.New(core)

	// Act
	warnInvalidLevel(logger, atom, "verbose")
	logger.Warn("after fallback")

	// Assert
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Invalid LOG_LEVEL, falling back to error", entries[0].Message)
	assert.Equal(t, "verbose", entries[0].ContextMap()["level"])
	assert.Equal(t, zapcore.ErrorLevel, atom.Level())
}

func TestCollector_Handler(t *testing.T) {
	// Arrange
	c := NewCollector("share_note")
	c.NotesCreated.Inc()
	c.HTTPRequests.WithLabelValues("POST", "/note/", "200").Inc()
	rec := httptest.NewRecorder()

	// Act
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "share_note_notes_created_total 1")
	assert.Contains(t, rec.Body.String(), `share_note_http_requests_total{method="POST",route="/note/",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCollector_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("a")
		NewCollector("a")
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false})

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewTracerProvider_SynchronousExportsOnEnd(t *testing.T) {
	tests := []struct {
		name        string
		synchronous bool
		want        int
	}{
		{name: "synchronous", synchronous: true, want: 1},
		{name: "batched", synchronous: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			exporter := tracetest.NewInMemoryExporter()
			tp := newTracerProvider(exporter, TracingConfig{
				ServiceName: "share-note-test",
				SampleRate:  1,
				Synchronous: tt.synchronous,
			})
			defer tp.Shutdown(context.Background())

			// Act
			_, span := tp.Tracer("test").Start(context.Background(), "invocation")
			span.End()

			// Assert
			assert.Len(t, exporter.GetSpans(), tt.want)
		})
	}
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 0.1, sampleRate("production"))
	assert.Equal(t, 1.0, sampleRate("development"))
}
