package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/notes-api/internal/logging"
	"github.com/redmonkez12/notes-api/internal/user"
)

var (
	ErrMissingFields        = errors.New("all fields are required")
	ErrInvalidEmailFormat   = errors.New("invalid email format")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong      = errors.New("password must be at most 72 bytes")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired otp")
)

// UserStore is the credential store used by the auth service.
type UserStore interface {
	Create(ctx context.Context, fullName, email, passwordHash string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id uuid.UUID, includeSecret bool) (*user.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	SetResetChallenge(ctx context.Context, userID uuid.UUID, c *user.ResetChallenge) error
	ConsumeResetChallenge(ctx context.Context, userID uuid.UUID, code string, now time.Time, passwordHash string) error
}

// ResetMailer delivers password reset codes.
type ResetMailer interface {
	SendPasswordResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
}

// ResetMailQueue holds reset mails whose first delivery attempt failed.
type ResetMailQueue interface {
	EnqueueResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	User  *user.User
	Token string
}

// ResetIssue is the outcome of a password reset request. The code is always
// persisted when a ResetIssue is returned; Delivered reports whether the mail
// went out and Queued whether a failed mail was handed to the retry queue.
type ResetIssue struct {
	ExpiresAt time.Time
	Delivered bool
	Queued    bool
}

// Service handles authentication business logic
type Service struct {
	users         UserStore
	hasher        PasswordHasher
	tokens        TokenService
	mailer        ResetMailer
	mailQueue     ResetMailQueue
	logger        *logging.Logger
	tokenDuration time.Duration
	otpTTL        time.Duration
	mailTimeout   time.Duration

	now       func() time.Time
	otpSource io.Reader
}

func NewService(
	users UserStore,
	hasher PasswordHasher,
	tokens TokenService,
	mailer ResetMailer,
	mailQueue ResetMailQueue,
	logger *logging.Logger,
	tokenDuration time.Duration,
	otpTTL time.Duration,
	mailTimeout time.Duration,
) *Service {
	return &Service{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		mailer:        mailer,
		mailQueue:     mailQueue,
		logger:        logger,
		tokenDuration: tokenDuration,
		otpTTL:        otpTTL,
		mailTimeout:   mailTimeout,
		now:           time.Now,
		otpSource:     rand.Reader,
	}
}

// Register creates a new user account and returns it with a session token
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	fullName = strings.TrimSpace(fullName)
	email = user.NormalizeEmail(email)

	if fullName == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmailFormat
	}
	if err := validateNewPassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(ctx, fullName, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.authenticated(newUser)
}

// Login verifies credentials and returns the user with a session token
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	existingUser, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, existingUser.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.authenticated(existingUser)
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	existingUser, err := s.users.FindByID(ctx, userID, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, existingUser.PasswordHash) {
		return ErrWrongPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, existingUser.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// RequestPasswordReset issues a fresh six digit code for the user, replacing
// any earlier one, and mails it. The code is persisted before dispatch; a
// failed dispatch is logged, queued for retry and reported through the
// returned ResetIssue rather than as an error.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetIssue, error) {
	email = user.NormalizeEmail(email)
	if email == "" {
		return nil, ErrMissingFields
	}

	existingUser, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	code, err := generateOTP(s.otpSource)
	if err != nil {
		return nil, err
	}

	challenge := &user.ResetChallenge{
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}

	if err := s.users.SetResetChallenge(ctx, existingUser.ID, challenge); err != nil {
		return nil, fmt.Errorf("failed to store reset code: %w", err)
	}

	issue := &ResetIssue{ExpiresAt: challenge.ExpiresAt}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	if err := s.mailer.SendPasswordResetCode(mailCtx, existingUser.Email, code, challenge.ExpiresAt); err != nil {
		s.logger.Warn("failed to send reset code email", "user_id", existingUser.ID, "error", err)

		if s.mailQueue != nil {
			// the request context may already be done after a slow send
			queueCtx := context.WithoutCancel(ctx)
			if qerr := s.mailQueue.EnqueueResetCode(queueCtx, existingUser.Email, code, challenge.ExpiresAt); qerr != nil {
				s.logger.Error("failed to queue reset code email", "user_id", existingUser.ID, "error", qerr)
			} else {
				issue.Queued = true
			}
		}
		return issue, nil
	}

	issue.Delivered = true
	return issue, nil
}

// ResetPassword consumes a reset code and sets a new password. The code is
// single use: once consumed, the same code is rejected.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = user.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return ErrMissingFields
	}

	existingUser, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	now := s.now()
	challenge := existingUser.ResetChallenge
	if !challenge.ValidAt(now) || !otpEqual(challenge.Code, code) {
		return ErrInvalidOrExpiredCode
	}

	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.users.ConsumeResetChallenge(ctx, existingUser.ID, code, now, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrResetChallengeMismatch) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return nil
}

func (s *Service) authenticated(u *user.User) (*AuthResult, error) {
	token, err := s.tokens.CreateToken(u.ID, u.Email, u.FullName, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	public := *u
	public.PasswordHash = ""
	public.ResetChallenge = nil

	return &AuthResult{User: &public, Token: token}, nil
}

func validEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// reject display-name forms such as "A <a@x.com>"
	return addr.Address == email
}
