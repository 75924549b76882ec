package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
// Clients branch on these; the values are part of the API contract.
const (
	// Validation
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeMissingFields      = "MISSING_FIELDS"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong    = "PASSWORD_TOO_LONG"
	CodeInvalidNoteID      = "INVALID_NOTE_ID"

	// Authentication
	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeWrongPassword      = "WRONG_CURRENT_PASSWORD"
	CodeInvalidOTP         = "INVALID_OR_EXPIRED_OTP"

	// Ownership
	CodeNotNoteOwner = "NOT_NOTE_OWNER"

	// Lookup
	CodeUserNotFound = "USER_NOT_FOUND"
	CodeNoteNotFound = "NOTE_NOT_FOUND"

	// Conflicts
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeDuplicateNote      = "DUPLICATE_NOTE"

	CodeInternalError = "INTERNAL_ERROR"
)
