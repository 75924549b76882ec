package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/notes-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claim names shared by both token formats.
const (
	claimUserID   = "userId"
	claimEmail    = "email"
	claimFullName = "fullName"
)

// TokenClaims represents the identity carried by a session token
type TokenClaims struct {
	UserID    string    `json:"userId"` // UUID stored as string in token
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
// Tokens are stateless: a token stays valid until it expires.
type TokenService interface {
	CreateToken(userID uuid.UUID, email, fullName string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService builds the TokenService selected by cfg.TokenStrategy.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyPaseto:
		return NewPasetoService(cfg.PasetoKey)
	case config.TokenStrategyJWT:
		return NewJWTService(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unsupported token strategy %q", cfg.TokenStrategy)
	}
}

// tokenWindow returns the iat and exp claims for a token issued at now.
// Both formats carry whole seconds, so iat is rounded down and exp up: the
// token is accepted for at least duration from the moment it was issued.
func tokenWindow(now time.Time, duration time.Duration) (issuedAt, expiresAt time.Time) {
	issuedAt = now.Truncate(time.Second)
	expiresAt = now.Add(duration)
	if t := expiresAt.Truncate(time.Second); !t.Equal(expiresAt) {
		expiresAt = t.Add(time.Second)
	}
	return issuedAt, expiresAt
}
