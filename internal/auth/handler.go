package auth

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/notes-api/internal/httputil"
	"github.com/redmonkez12/notes-api/internal/logging"
	"github.com/redmonkez12/notes-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SendOTPRequest represents the reset code request body
type SendOTPRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user"`
	Token   string     `json:"token"`
}

// SendOTPResponse reports whether the reset code mail went out
type SendOTPResponse struct {
	Message   string `json:"message"`
	Delivered bool   `json:"delivered"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account and receive a session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error or email already registered"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/user/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already registered")
			httputil.RespondErrorWithCode(w, "Email already registered", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		case respondValidation(w, err):
			logger.Warn("registration failed: validation error", "error", err.Error())
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal Server Error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered", "user_id", result.User.ID)

	httputil.RespondJSON(w, AuthResponse{
		Message: "User registered successfully",
		User:    result.User,
		Token:   result.Token,
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields, unknown user or invalid credentials"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/user/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("login failed: user not found")
			httputil.RespondErrorWithCode(w, "User not found, please register", httputil.CodeUserNotFound, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "Invalid credentials", httputil.CodeInvalidCredentials, http.StatusBadRequest)
		case respondValidation(w, err):
			logger.Warn("login failed: validation error", "error", err.Error())
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal Server Error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in", "user_id", result.User.ID)

	httputil.RespondJSON(w, AuthResponse{
		Message: "Login successful",
		User:    result.User,
		Token:   result.Token,
	}, http.StatusOK)
}

// ChangePassword handles password changes for the authenticated user
// @Summary      Change password
// @Description  Replace the current password after verifying it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields or wrong current password"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /api/user/change-password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid change password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("change password failed: user not found", "user_id", userID)
			httputil.RespondErrorWithCode(w, "User not found", httputil.CodeUserNotFound, http.StatusNotFound)
		case errors.Is(err, ErrWrongPassword):
			logger.Warn("change password failed: wrong current password", "user_id", userID)
			httputil.RespondErrorWithCode(w, "Current password is incorrect", httputil.CodeWrongPassword, http.StatusBadRequest)
		case respondValidation(w, err):
			logger.Warn("change password failed: validation error", "error", err.Error())
		default:
			logger.Error("change password failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal Server Error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password changed", "user_id", userID)
	httputil.RespondMessage(w, "Password changed successfully", http.StatusOK)
}

// SendOTP handles password reset code requests
// @Summary      Request a password reset code
// @Description  Issue a six digit reset code valid for 15 minutes and mail it to the user.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SendOTPRequest true "Email address"
// @Success      200 {object} SendOTPResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing email"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/user/send-otp [post]
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SendOTPRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid send otp request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	issue, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			httputil.RespondErrorWithCode(w, "Email is required", httputil.CodeMissingFields, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("send otp failed: user not found")
			httputil.RespondErrorWithCode(w, "User not found", httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("send otp failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal Server Error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	message := "OTP sent to your email"
	if !issue.Delivered {
		message = "OTP issued but the email could not be delivered yet; it will be retried"
	}

	httputil.RespondJSON(w, SendOTPResponse{
		Message:   message,
		Delivered: issue.Delivered,
	}, http.StatusOK)
}

// ResetPassword handles password reset with a one-time code
// @Summary      Reset password
// @Description  Set a new password using the emailed six digit code.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Email, code and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields, short password or invalid/expired code"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/user/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidOrExpiredCode):
			logger.Warn("password reset failed: invalid or expired otp")
			httputil.RespondErrorWithCode(w, "Invalid or expired OTP", httputil.CodeInvalidOTP, http.StatusBadRequest)
		case respondValidation(w, err):
			logger.Warn("password reset failed: validation error", "error", err.Error())
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal Server Error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")
	httputil.RespondMessage(w, "Password reset successfully", http.StatusOK)
}

// respondValidation writes a 400 for input validation errors and reports
// whether err was one.
func respondValidation(w http.ResponseWriter, err error) bool {
	var code string
	switch {
	case errors.Is(err, ErrMissingFields):
		code = httputil.CodeMissingFields
	case errors.Is(err, ErrInvalidEmailFormat):
		code = httputil.CodeInvalidEmailFormat
	case errors.Is(err, ErrPasswordTooShort):
		code = httputil.CodePasswordTooShort
	case errors.Is(err, ErrPasswordTooLong):
		code = httputil.CodePasswordTooLong
	default:
		return false
	}

	httputil.RespondErrorWithCode(w, err.Error(), code, http.StatusBadRequest)
	return true
}
