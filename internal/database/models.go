package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Unique index names from the migrations.
const (
	UsersEmailKey             = "users_email_key"
	NotesOwnerTitleContentKey = "notes_owner_title_content_key"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	FullName     string     `bun:"full_name,notnull"`
	Email        string     `bun:"email,notnull"`
	PasswordHash string     `bun:"password_hash,notnull"`
	OTPCode      *string    `bun:"otp_code"`
	OTPExpiresAt *time.Time `bun:"otp_expires_at"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID   uuid.UUID `bun:"owner_id,type:uuid,notnull"`
	Title     string    `bun:"title,notnull"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
