package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"share-note-backend/application/commands"
	"share-note-backend/application/queries"
	pkgerrors "share-note-backend/pkg/errors"
	"share-note-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NotePasswordHeader lets clients that cannot send a GET body supply the
// note password.
const NotePasswordHeader = "X-Note-Password"

// NoteService is the application service behind the note endpoints
type NoteService interface {
	Create(ctx context.Context, cmd commands.CreateNoteCommand) (*commands.CreateNoteResult, error)
	Read(ctx context.Context, q queries.ReadNoteQuery) (*queries.ReadNoteResult, error)
}

// NoteHandler handles note-related HTTP requests
type NoteHandler struct {
	service      NoteService
	errorHandler *pkgerrors.ErrorHandler
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewNoteHandler creates a new note handler. maxContentBytes bounds the
// request body, leaving room for JSON escaping and the other fields.
func NewNoteHandler(
	service NoteService,
	errorHandler *pkgerrors.ErrorHandler,
	maxContentBytes int,
	logger *zap.Logger,
) *NoteHandler {
	return &NoteHandler{
		service:      service,
		errorHandler: errorHandler,
		maxBodyBytes: int64(maxContentBytes)*6 + 4096,
		logger:       logger,
	}
}

// CreateNoteRequest represents the request body for creating a note
type CreateNoteRequest struct {
	Content    string `json:"content" validate:"required"`
	Password   string `json:"password,omitempty"`
	TTLSeconds *int   `json:"ttl_seconds,omitempty" validate:"omitempty,gte=1"`
}

// ReadNoteRequest represents the optional request body for reading a note
type ReadNoteRequest struct {
	Password string `json:"password,omitempty"`
}

// CreateNote handles POST /note
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := h.decode(w, r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.Create(r.Context(), commands.CreateNoteCommand{
		Content:    req.Content,
		Password:   req.Password,
		TTLSeconds: req.TTLSeconds,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ReadNote handles GET /note/{noteID}
func (h *NoteHandler) ReadNote(w http.ResponseWriter, r *http.Request) {
	var req ReadNoteRequest
	if err := h.decode(w, r, &req, true); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if req.Password == "" {
		req.Password = r.Header.Get(NotePasswordHeader)
	}

	result, err := h.service.Read(r.Context(), queries.ReadNoteQuery{
		NoteID:   chi.URLParam(r, "noteID"),
		Password: req.Password,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into v. With optional set an absent or empty
// body leaves v untouched.
func (h *NoteHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return pkgerrors.NewValidationError("Request body is required")
	}

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)

	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if optional {
			return nil
		}
		return pkgerrors.NewValidationError("Request body is required")
	case errors.As(err, &maxErr):
		return pkgerrors.NewValidationError("Request body is too large")
	default:
		return pkgerrors.NewValidationError("Invalid request body").WithCause(err)
	}
}

// respondJSON sends a JSON response
func (h *NoteHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
