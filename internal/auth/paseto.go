package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		now:          time.Now,
	}, nil
}

// CreateToken generates a new PASETO v4.local token with the given claims and duration
func (s *PasetoService) CreateToken(userID uuid.UUID, email, fullName string, duration time.Duration) (string, error) {
	issuedAt, expiresAt := tokenWindow(s.now(), duration)

	token := paseto.NewToken()
	token.SetIssuedAt(issuedAt)
	token.SetExpiration(expiresAt)
	token.SetString(claimUserID, userID.String())
	token.SetString(claimEmail, email)
	token.SetString(claimFullName, fullName)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a PASETO v4.local token and returns the claims.
// Expiry is checked against the service clock: valid while now < exp.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString(claimUserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString(claimEmail)
	if err != nil {
		return nil, ErrInvalidToken
	}

	fullName, err := token.GetString(claimFullName)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    userID,
		Email:     email,
		FullName:  fullName,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
