package kraackauth

import (
	"errors"
	"net/http"
)

// Store-level sentinel errors.  Flows match these with errors.Is and map
// them to an AuthError before anything reaches the wire.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrTokenNotFound        = errors.New("token not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrConfirmationNotFound = errors.New("two-factor confirmation not found")
)

// Error codes surfaced in JSON error bodies
const (
	ErrCodeInvalidPayload  = "invalid_payload"
	ErrCodeMissingField    = "missing_field"
	ErrCodeValidation      = "validation_error"
	ErrCodeInvalidCreds    = "invalid_credentials"
	ErrCodeEmailExists     = "email_exists"
	ErrCodeEmailTaken      = "email_taken"
	ErrCodeEmailUnverified = "email_unverified"
	ErrCodeInvalidCode     = "invalid_two_factor_code"
	ErrCodeCodeFormat      = "invalid_code_format"
	ErrCodeCodeExpired     = "two_factor_code_expired"
	ErrCodeTokenInvalid    = "token_invalid"
	ErrCodeTokenExpired    = "token_expired"
	ErrCodeSignInBlocked   = "sign_in_blocked"
	ErrCodeNotAuthorized   = "not_authorized"
	ErrCodeUserNotFound    = "user_not_found"
	ErrCodeWrongPassword   = "wrong_password"
	ErrCodeSendFailed      = "email_send_failed"
	ErrCodeServerError     = "server_error"
)

// AuthError is the single error shape the auth flows hand to HTTP handlers.
// Message is always safe to show to the caller; anything touching credential
// or token validity stays deliberately generic.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field, Status: statusForCode(code)}
}

func statusForCode(code string) int {
	switch code {
	case ErrCodeInvalidPayload, ErrCodeMissingField, ErrCodeValidation,
		ErrCodeCodeFormat, ErrCodeTokenInvalid, ErrCodeTokenExpired,
		ErrCodeEmailTaken, ErrCodeWrongPassword:
		return http.StatusBadRequest
	case ErrCodeInvalidCreds, ErrCodeInvalidCode, ErrCodeCodeExpired:
		return http.StatusUnauthorized
	case ErrCodeEmailUnverified, ErrCodeSignInBlocked:
		return http.StatusForbidden
	case ErrCodeNotAuthorized:
		return http.StatusUnauthorized
	case ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeEmailExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
