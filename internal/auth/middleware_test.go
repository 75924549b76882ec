package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/notes-api/internal/httputil"
)

func TestRequireAuth(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	clock := &fixedClock{t: issued}
	tokens := newTestPaseto(t, clock)
	mw := NewMiddleware(tokens)

	userID := uuid.New()
	valid, err := tokens.CreateToken(userID, "a@x.com", "Alice", time.Hour)
	require.NoError(t, err)

	var gotID uuid.UUID
	protected := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		at       time.Time
		wantCode string
	}{
		{"missing header", "", issued, httputil.CodeMissingAuth},
		{"no scheme", valid, issued, httputil.CodeInvalidAuthHeader},
		{"wrong scheme", "Basic " + valid, issued, httputil.CodeInvalidAuthHeader},
		{"empty token", "Bearer ", issued, httputil.CodeInvalidAuthHeader},
		{"garbage token", "Bearer not-a-token", issued, httputil.CodeInvalidToken},
		{"expired", "Bearer " + valid, issued.Add(time.Hour), httputil.CodeTokenExpired},
		{"valid", "Bearer " + valid, issued.Add(30 * time.Minute), ""},
		{"lowercase scheme", "bearer " + valid, issued, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = tt.at
			gotID = uuid.Nil

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if tt.wantCode == "" {
				assert.Equal(t, http.StatusNoContent, rec.Code)
				assert.Equal(t, userID, gotID)
				return
			}

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, uuid.Nil, gotID)

			var body httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestRequireAuth_NonUUIDSubject(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	tokens := newTestJWT(t, clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString(tokens.secret)
	require.NoError(t, err)

	called := false
	protected := NewMiddleware(tokens).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, httputil.CodeInvalidTokenUserID, body.Code)
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserIDFromContext(req.Context())
	assert.False(t, ok)
}
