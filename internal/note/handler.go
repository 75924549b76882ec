package note

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/notes-api/internal/auth"
	"github.com/redmonkez12/notes-api/internal/httputil"
	"github.com/redmonkez12/notes-api/internal/logging"
)

// Handler serves the note endpoints. Every route sits behind auth.Middleware.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// NoteRequest is the body of create and update
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type NoteResponse struct {
	Message string `json:"message"`
	Note    *Note  `json:"note"`
}

type NotesResponse struct {
	Message string `json:"message"`
	Notes   []Note `json:"notes"`
}

// Create handles note creation
// @Summary      Create a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body NoteRequest true "Note"
// @Success      201 {object} NoteResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields or duplicate note"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /api/notes/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestor(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	n, err := h.service.Create(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	logger.Info("note created", "note_id", n.ID, "user_id", userID)
	httputil.RespondJSON(w, NoteResponse{Message: "Note created successfully", Note: n}, http.StatusCreated)
}

// List handles listing the caller's notes
// @Summary      List notes
// @Description  Notes of the authenticated user, newest first.
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} NotesResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /api/notes/all [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestor(w, r)
	if !ok {
		return
	}

	notes, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	message := "Notes fetched successfully"
	if len(notes) == 0 {
		message = "No notes created yet"
	}
	httputil.RespondJSON(w, NotesResponse{Message: message, Notes: notes}, http.StatusOK)
}

// Get handles fetching a single note
// @Summary      Get a note
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Note ID"
// @Success      200 {object} NoteResponse
// @Failure      400 {object} httputil.ErrorResponse "Malformed note id"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized or not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Note not found"
// @Router       /api/notes/get-note/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestor(w, r)
	if !ok {
		return
	}
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}

	n, err := h.service.Get(r.Context(), noteID, userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, NoteResponse{Message: "Note fetched successfully", Note: n}, http.StatusOK)
}

// Update handles note edits
// @Summary      Update a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Note ID"
// @Param        request body NoteRequest true "Note"
// @Success      200 {object} NoteResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields, malformed id or duplicate note"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized or not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Note not found"
// @Router       /api/notes/update/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestor(w, r)
	if !ok {
		return
	}
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	n, err := h.service.Update(r.Context(), noteID, req.Title, req.Content, userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	logger.Info("note updated", "note_id", n.ID, "user_id", userID)
	httputil.RespondJSON(w, NoteResponse{Message: "Note updated successfully", Note: n}, http.StatusOK)
}

// Delete handles note removal
// @Summary      Delete a note
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Note ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Malformed note id"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized or not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Note not found"
// @Router       /api/notes/delete/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestor(w, r)
	if !ok {
		return
	}
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), noteID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	logger.Info("note deleted", "note_id", noteID, "user_id", userID)
	httputil.RespondMessage(w, "Note deleted successfully", http.StatusOK)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrMissingFields):
		httputil.RespondErrorWithCode(w, "Title and content are required", httputil.CodeMissingFields, http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateNote):
		httputil.RespondErrorWithCode(w, "Note already exists", httputil.CodeDuplicateNote, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "Note not found", httputil.CodeNoteNotFound, http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		logger.Warn("note access denied")
		httputil.RespondErrorWithCode(w, "Unauthorized: you don't own this note", httputil.CodeNotNoteOwner, http.StatusUnauthorized)
	default:
		logger.Error("note operation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func requestor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
	}
	return userID, ok
}

func noteIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "Invalid note ID format", httputil.CodeInvalidNoteID, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
