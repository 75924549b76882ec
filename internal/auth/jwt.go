package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// JWTService signs HS256 JWTs with a shared secret.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

func NewJWTService(secret []byte) (*JWTService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	return &JWTService{
		secret: secret,
		now:    time.Now,
	}, nil
}

func (s *JWTService) CreateToken(userID uuid.UUID, email, fullName string, duration time.Duration) (string, error) {
	issuedAt, expiresAt := tokenWindow(s.now(), duration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:   userID.String(),
		Email:    email,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}
