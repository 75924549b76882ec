package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/notes-api/internal/auth"
	"github.com/redmonkez12/notes-api/internal/config"
	"github.com/redmonkez12/notes-api/internal/httputil"
	"github.com/redmonkez12/notes-api/internal/logging"
	"github.com/redmonkez12/notes-api/internal/note"
	"github.com/redmonkez12/notes-api/internal/user"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func (s *memUsers) Create(_ context.Context, fullName, email, hash string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}
	u := user.User{ID: uuid.New(), FullName: fullName, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return &u, nil
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *memUsers) FindByID(_ context.Context, id uuid.UUID, _ bool) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *memUsers) SetResetChallenge(_ context.Context, id uuid.UUID, c *user.ResetChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.ResetChallenge = c
	s.users[id] = u
	return nil
}

func (s *memUsers) ConsumeResetChallenge(_ context.Context, id uuid.UUID, code string, now time.Time, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !u.ResetChallenge.ValidAt(now) || u.ResetChallenge.Code != code {
		return user.ErrResetChallengeMismatch
	}
	u.PasswordHash = hash
	u.ResetChallenge = nil
	s.users[id] = u
	return nil
}

type memNotes struct {
	mu    sync.Mutex
	notes map[uuid.UUID]note.Note
}

func (s *memNotes) Create(_ context.Context, owner uuid.UUID, title, content string) (*note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := note.Note{ID: uuid.New(), OwnerID: owner, Title: title, Content: content, CreatedAt: time.Now()}
	s.notes[n.ID] = n
	return &n, nil
}

func (s *memNotes) FindByID(_ context.Context, id uuid.UUID) (*note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	return &n, nil
}

func (s *memNotes) FindAllByOwner(_ context.Context, owner uuid.UUID) ([]note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []note.Note
	for _, n := range s.notes {
		if n.OwnerID == owner {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotes) Update(_ context.Context, n *note.Note) (*note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = *n
	return n, nil
}

func (s *memNotes) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return note.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingMailer) SendPasswordResetCode(_ context.Context, to, code string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *recordingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func newTestRouter(t *testing.T) (http.Handler, *recordingMailer) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Env: "prod", TrustedOrigins: []string{"http://localhost:8081"}},
	}

	tokens, err := auth.NewJWTService([]byte("router-test-secret"))
	require.NoError(t, err)

	mailer := &recordingMailer{codes: make(map[string]string)}
	authService := auth.NewService(
		&memUsers{users: make(map[uuid.UUID]user.User)},
		auth.NewBcryptHasher(bcrypt.MinCost),
		tokens,
		mailer,
		nil,
		logging.Discard(),
		time.Hour,
		15*time.Minute,
		time.Second,
	)
	noteService := note.NewService(&memNotes{notes: make(map[uuid.UUID]note.Note)})

	router := NewRouter(
		cfg,
		auth.NewHandler(authService),
		note.NewHandler(noteService),
		auth.NewMiddleware(tokens),
		logging.Discard(),
	)
	return router, mailer
}

func send(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp auth.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestNotesLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := send(t, h, http.MethodPost, "/api/user/register", "", map[string]string{
		"fullName": "A", "email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := tokenFrom(t, rec)

	rec = send(t, h, http.MethodPost, "/api/notes/create", token, map[string]string{"title": "T", "content": "C"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created note.NoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	noteID := created.Note.ID.String()

	rec = send(t, h, http.MethodGet, "/api/notes/get-note/"+noteID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched note.NoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	assert.Equal(t, created.Note.ID, fetched.Note.ID)
	assert.Equal(t, "T", fetched.Note.Title)
	assert.Equal(t, "C", fetched.Note.Content)

	rec = send(t, h, http.MethodPost, "/api/user/register", "", map[string]string{
		"fullName": "B", "email": "b@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	otherToken := tokenFrom(t, rec)

	rec = send(t, h, http.MethodGet, "/api/notes/get-note/"+noteID, otherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(t, h, http.MethodDelete, "/api/notes/delete/"+noteID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, h, http.MethodGet, "/api/notes/get-note/"+noteID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	h, mailer := newTestRouter(t)

	rec := send(t, h, http.MethodPost, "/api/user/register", "", map[string]string{
		"fullName": "A", "email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/user/send-otp", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := mailer.code("a@x.com")
	require.Len(t, code, 6)

	rec = send(t, h, http.MethodPost, "/api/user/reset-password", "", map[string]string{
		"email": "a@x.com", "otp": code, "newPassword": "brandnew123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "a@x.com", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "a@x.com", "password": "brandnew123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/notes/create"},
		{http.MethodGet, "/api/notes/all"},
		{http.MethodGet, "/api/notes/get-note/" + uuid.NewString()},
		{http.MethodPut, "/api/notes/update/" + uuid.NewString()},
		{http.MethodDelete, "/api/notes/delete/" + uuid.NewString()},
		{http.MethodPut, "/api/user/change-password"},
	} {
		rec := send(t, h, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)

		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, httputil.CodeMissingAuth, body.Code, route.path)
	}
}

func TestHealthAndHeaders(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := send(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	rec = send(t, h, http.MethodGet, "/api/notes/all", "", nil)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestSwaggerDisabledInProduction(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := send(t, h, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
