package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "SOCIAL_PROVIDER_NOT_FOUND"
	TextCodeInvalidState      = "SOCIAL_INVALID_STATE"
	TextCodeStateExpired      = "SOCIAL_STATE_EXPIRED"
	TextCodeAccessDenied      = "SOCIAL_ACCESS_DENIED"
	TextCodeTokenExchangeFail = "SOCIAL_TOKEN_EXCHANGE_FAILED"
	TextCodeUserInfoFail      = "SOCIAL_USER_INFO_FAILED"
	TextCodeProfileIncomplete = "SOCIAL_PROFILE_INCOMPLETE"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is missing, tampered or
// does not match the handshake held in the session.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrAccessDenied is returned when the provider redirects back with an error.
var ErrAccessDenied = errors.New("provider denied access", errors.CategoryAuth).
	WithTextCode(TextCodeAccessDenied).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when fetching user info fails.
var ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrProfileIncomplete is returned when a profile has no provider user id.
var ErrProfileIncomplete = errors.New("provider profile has no user id", errors.CategoryAuth).
	WithTextCode(TextCodeProfileIncomplete).
	WithCode(errors.CodeUnauthorized)
