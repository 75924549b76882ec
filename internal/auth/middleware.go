package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/notes-api/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserIDContextKey ContextKey = "user_id"

// Middleware handles authentication for protected routes
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// RequireAuth validates the bearer token in the Authorization header and
// stores the caller's identity in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.RespondErrorWithCode(w, "no token provided", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "invalid user ID in token", httputil.CodeInvalidTokenUserID, http.StatusUnauthorized)
			return
		}

		ctx := WithIdentity(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity returns a context carrying an authenticated caller.
func WithIdentity(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}
