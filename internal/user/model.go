package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID       `json:"id"`
	FullName       string          `json:"fullName"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"` // Never expose password hash in JSON
	ResetChallenge *ResetChallenge `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ResetChallenge is an outstanding one-time password reset code.
// A user has at most one; issuing a new code replaces the old one.
type ResetChallenge struct {
	Code      string
	ExpiresAt time.Time
}

// ValidAt reports whether the challenge is still redeemable at now.
func (c *ResetChallenge) ValidAt(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}
