package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"share-note-backend/application/commands"
	"share-note-backend/application/queries"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNoteService is a mock implementation of NoteService
type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) Create(ctx context.Context, cmd commands.CreateNoteCommand) (*commands.CreateNoteResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commands.CreateNoteResult), args.Error(1)
}

func (m *MockNoteService) Read(ctx context.Context, q queries.ReadNoteQuery) (*queries.ReadNoteResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*queries.ReadNoteResult), args.Error(1)
}

func setupHandler(maxContentBytes int) (*MockNoteService, http.Handler) {
	service := new(MockNoteService)
	logger := zap.NewNop()
	h := NewNoteHandler(service, pkgerrors.NewErrorHandler(logger), maxContentBytes, logger)

	router := chi.NewRouter()
	router.Post("/note", h.CreateNote)
	router.Get("/note/{noteID}", h.ReadNote)
	return service, router
}

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestCreateNote_Success(t *testing.T) {
	// Arrange
	service, h := setupHandler(1024)
	ttl := 120
	service.On("Create", mock.Anything, commands.CreateNoteCommand{
		Content:    "hello",
		Password:   "pw",
		TTLSeconds: &ttl,
	}).Return(&commands.CreateNoteResult{ID: "note-1", ExpiresAt: "2026-01-01T00:02:00Z"}, nil)

	// Act
	rec := serve(h, http.MethodPost, "/note", `{"content":"hello","password":"pw","ttl_seconds":120}`, nil)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"id":"note-1","expires_at":"2026-01-01T00:02:00Z"}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestCreateNote_RejectedBeforeService(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "no body", body: "", message: "Request body is required"},
		{name: "malformed", body: `{"content":`, message: "Invalid request body"},
		{name: "wrong type", body: `{"content":42}`, message: "Invalid request body"},
		{name: "too large", body: `{"content":"` + strings.Repeat("a", 5000) + `"}`, message: "Request body is too large"},
		{name: "missing content", body: `{"password":"x"}`, message: "content is required"},
		{name: "zero ttl", body: `{"content":"x","ttl_seconds":0}`, message: "ttl_seconds must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, h := setupHandler(1)

			rec := serve(h, http.MethodPost, "/note", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, errorMessage(t, rec))
			service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateNote_ServiceError(t *testing.T) {
	service, h := setupHandler(1024)
	service.On("Create", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable))

	rec := serve(h, http.MethodPost, "/note", `{"content":"x"}`, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, pkgerrors.MessageStoreUnavailable, errorMessage(t, rec))
}

func TestReadNote_PasswordSources(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		header   string
		expected string
	}{
		{name: "no password", expected: ""},
		{name: "empty body object", body: `{}`, expected: ""},
		{name: "body", body: `{"password":"from-body"}`, expected: "from-body"},
		{name: "header", header: "from-header", expected: "from-header"},
		{name: "body wins over header", body: `{"password":"from-body"}`, header: "from-header", expected: "from-body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service, h := setupHandler(1024)
			service.On("Read", mock.Anything, queries.ReadNoteQuery{NoteID: "abc", Password: tt.expected}).
				Return(&queries.ReadNoteResult{Content: "hello"}, nil)
			header := map[string]string{}
			if tt.header != "" {
				header[NotePasswordHeader] = tt.header
			}

			// Act
			rec := serve(h, http.MethodGet, "/note/abc", tt.body, header)

			// Assert
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"content":"hello"}`, rec.Body.String())
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			service.AssertExpectations(t)
		})
	}
}

func TestReadNote_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: pkgerrors.NewNotFoundError("gone"), status: http.StatusNotFound},
		{name: "forbidden", err: pkgerrors.NewForbiddenError("Invalid note password"), status: http.StatusForbidden},
		{name: "timeout", err: pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout), status: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, h := setupHandler(1024)
			service.On("Read", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(h, http.MethodGet, "/note/abc", "", nil)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestReadNote_MalformedBody(t *testing.T) {
	service, h := setupHandler(1024)

	rec := serve(h, http.MethodGet, "/note/abc", `not json`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
}
