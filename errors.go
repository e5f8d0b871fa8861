package credentials

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	TextCodeInvalidOrExpired     = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTooManyLoginAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// response cannot be used to enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotVerified is only returned once the password check has passed, so
// it never doubles as a password correctness oracle.
var ErrEmailNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is the registration duplicate signal. Registration is the one
// flow where revealing a collision is unavoidable.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidToken is returned when a verification token matches no account.
var ErrInvalidToken = goerrors.New("invalid verification token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRefreshToken covers cryptographic failure, a missing account, and
// a stored value mismatch. A mismatch on a well formed token usually means the
// token was already rotated: either replay or a logged out session.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidOrExpiredToken is the reset flow failure signal. Expired and
// unknown tokens share one message.
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidOrExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is the signed token expiry error.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenSignatureInvalid indicates tampering or a token signed with a
// different secret, including an access token presented as a refresh token.
var ErrTokenSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode("TOKEN_SIGNATURE_INVALID").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers structurally invalid or tampered tokens.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotFound signals a lookup that matched no stored account.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeAccountNotFound)

// newAccountNotFound builds a fresh not-found error so callers can attach
// metadata without mutating the shared sentinel. goerrors.IsNotFound matches
// it by category.
func newAccountNotFound(meta map[string]any) *goerrors.Error {
	err := goerrors.New("account not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeAccountNotFound)
	if len(meta) > 0 {
		err = err.WithMetadata(meta)
	}
	return err
}

// ErrTooManyLoginAttempts enforces the per account login cooldown.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyLoginAttempts).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty required inputs.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithTextCode("EMPTY_VALUE").
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the password comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode("MISMATCHED_PASSWORD").
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
