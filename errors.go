package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	TextCodeInvalidCreds   = "INVALID_CREDENTIALS"
	TextCodeEmailInUse     = "EMAIL_IN_USE"
	TextCodeValidation     = "VALIDATION_ERROR"
	TextCodeUnauthorized   = "UNAUTHORIZED"
	TextCodeSessionInvalid = "SESSION_INVALID"
	TextCodeLogoutFailed   = "LOGOUT_FAILED"
	TextCodeEmptyPassword  = "EMPTY_PASSWORD"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the only rejection login produces, unknown
// emails and wrong passwords look the same.
var ErrInvalidCredentials = goerrors.New("Incorrect email or password.", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailInUse is returned when registering an email that already exists
var ErrEmailInUse = goerrors.New("Email already in use.", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse).
	WithCode(goerrors.CodeConflict)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrSessionInvalid is returned when a session points to a user that no longer resolves
var ErrSessionInvalid = goerrors.New("session is no longer valid", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is returned by routes that require an authenticated user
var ErrUnauthorized = goerrors.New("Unauthorized", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrLogoutFailed is returned when the session store can not destroy a session
var ErrLogoutFailed = goerrors.New("Logout failed.", goerrors.CategoryInternal).
	WithTextCode(TextCodeLogoutFailed).
	WithCode(goerrors.CodeInternal)

// NewValidationError builds a 400 error carrying field level messages
func NewValidationError(message string, fields map[string]string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

// IsUniqueViolation reports whether err is a unique constraint violation
// raised by PostgreSQL or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	for e := err; e != nil; e = nextCause(e) {
		msg := strings.ToLower(e.Error())
		if strings.Contains(msg, "unique constraint") ||
			strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "sqlstate "+pgUniqueViolation) {
			return true
		}
	}
	return false
}

func nextCause(err error) error {
	if richErr, ok := err.(*goerrors.Error); ok && richErr.Source != nil {
		return richErr.Source
	}
	return errors.Unwrap(err)
}

// HasTextCode reports whether err is a rich error with the given text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
