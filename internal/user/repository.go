package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/notes-api/internal/database"
)

var (
	ErrNotFound               = errors.New("user not found")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrResetChallengeMismatch = errors.New("reset code does not match or has expired")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// NormalizeEmail returns the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user. Email uniqueness is enforced by the
// users_email_key index, so concurrent registrations cannot both succeed.
func (r *Repository) Create(ctx context.Context, fullName, email, passwordHash string) (*User, error) {
	dbUser := &database.User{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(fullName),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, database.UsersEmailKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByEmail retrieves a user by email, including the password hash and
// reset challenge.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("lower(email) = ?", NormalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByID retrieves a user by ID. The password hash is only loaded when
// includeSecret is set.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, includeSecret bool) (*User, error) {
	dbUser := new(database.User)
	q := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id)
	if !includeSecret {
		q = q.ExcludeColumn("password_hash")
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// UpdatePassword replaces the password hash of a user. The reset challenge
// is left untouched.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("refusing to store empty password hash")
	}

	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectOneRow(result)
}

// SetResetChallenge stores c as the outstanding reset code of a user,
// replacing any earlier one. The password hash is left untouched.
func (r *Repository) SetResetChallenge(ctx context.Context, userID uuid.UUID, c *ResetChallenge) error {
	if c == nil {
		return errors.New("refusing to store empty reset challenge")
	}

	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("otp_code = ?", c.Code).
		Set("otp_expires_at = ?", c.ExpiresAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetChallenge sets a new password hash and clears the reset
// challenge in one statement, provided the stored code still equals code and
// has not expired at now. Of several concurrent callers at most one succeeds.
func (r *Repository) ConsumeResetChallenge(ctx context.Context, userID uuid.UUID, code string, now time.Time, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("otp_code = NULL").
		Set("otp_expires_at = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", userID).
		Where("otp_code = ?", code).
		Where("otp_expires_at > ?", now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrResetChallengeMismatch
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:           dbu.ID,
		FullName:     dbu.FullName,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
	if dbu.OTPCode != nil && dbu.OTPExpiresAt != nil {
		u.ResetChallenge = &ResetChallenge{
			Code:      *dbu.OTPCode,
			ExpiresAt: *dbu.OTPExpiresAt,
		}
	}
	return u
}
