package note

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/notes-api/internal/auth"
	"github.com/redmonkez12/notes-api/internal/httputil"
)

const testUserHeader = "X-Test-User"

// withTestIdentity stands in for auth.Middleware: the caller id comes from a header.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(r.Header.Get(testUserHeader)); err == nil {
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func newNoteRouter() http.Handler {
	h := NewHandler(NewService(newMemStore()))

	r := chi.NewRouter()
	r.Use(withTestIdentity)
	r.Post("/create", h.Create)
	r.Get("/all", h.List)
	r.Get("/get-note/{id}", h.Get)
	r.Put("/update/{id}", h.Update)
	r.Delete("/delete/{id}", h.Delete)
	return r
}

func call(t *testing.T, h http.Handler, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != uuid.Nil {
		req.Header.Set(testUserHeader, user.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeNote(t *testing.T, rec *httptest.ResponseRecorder) NoteResponse {
	t.Helper()
	var resp NoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Code
}

func TestHandlerCRUD(t *testing.T) {
	h := newNoteRouter()
	owner := uuid.New()

	rec := call(t, h, http.MethodPost, "/create", owner, NoteRequest{Title: "T", Content: "C"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeNote(t, rec)
	assert.Equal(t, "Note created successfully", created.Message)
	require.NotNil(t, created.Note)
	id := created.Note.ID.String()

	rec = call(t, h, http.MethodGet, "/get-note/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T", decodeNote(t, rec).Note.Title)

	rec = call(t, h, http.MethodPut, "/update/"+id, owner, NoteRequest{Title: "T2", Content: "C2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T2", decodeNote(t, rec).Note.Title)

	rec = call(t, h, http.MethodGet, "/all", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list NotesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, "Notes fetched successfully", list.Message)
	assert.Len(t, list.Notes, 1)

	rec = call(t, h, http.MethodDelete, "/delete/"+id, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/get-note/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeNoteNotFound, decodeCode(t, rec))
}

func TestHandlerEmptyList(t *testing.T) {
	h := newNoteRouter()

	rec := call(t, h, http.MethodGet, "/all", uuid.New(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Equal(t, "No notes created yet", raw["message"])
	assert.Equal(t, []any{}, raw["notes"])
}

func TestHandlerNotOwner(t *testing.T) {
	h := newNoteRouter()
	owner, intruder := uuid.New(), uuid.New()

	rec := call(t, h, http.MethodPost, "/create", owner, NoteRequest{Title: "T", Content: "C"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeNote(t, rec).Note.ID.String()

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/get-note/" + id, nil},
		{http.MethodPut, "/update/" + id, NoteRequest{Title: "x", Content: "y"}},
		{http.MethodDelete, "/delete/" + id, nil},
	} {
		rec := call(t, h, tc.method, tc.path, intruder, tc.body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.Equal(t, httputil.CodeNotNoteOwner, decodeCode(t, rec), tc.path)
	}

	// the note is untouched
	rec = call(t, h, http.MethodGet, "/get-note/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T", decodeNote(t, rec).Note.Title)
}

func TestHandlerErrors(t *testing.T) {
	h := newNoteRouter()
	owner := uuid.New()

	rec := call(t, h, http.MethodPost, "/create", uuid.Nil, NoteRequest{Title: "T", Content: "C"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodPost, "/create", owner, NoteRequest{Title: "T"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeMissingFields, decodeCode(t, rec))

	rec = call(t, h, http.MethodPost, "/create", owner, NoteRequest{Title: "T", Content: "C"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, h, http.MethodPost, "/create", owner, NoteRequest{Title: "T", Content: "C"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeDuplicateNote, decodeCode(t, rec))

	rec = call(t, h, http.MethodGet, "/get-note/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidNoteID, decodeCode(t, rec))

	rec = call(t, h, http.MethodDelete, "/delete/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodPut, "/update/"+uuid.NewString(), owner, NoteRequest{Title: "a", Content: "b"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
