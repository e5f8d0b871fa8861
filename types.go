package credentials

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// TokenPair is the result of a successful login or refresh rotation.
// The access token is returned in the response body; the refresh token
// travels in an HttpOnly cookie and must never be readable by page scripts.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenService issues and verifies the signed token kinds. Verification is
// stateless and side effect free so it may run fully parallel.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, time.Time, error)
	IssueRefreshToken(accountID string) (string, time.Time, error)
	VerifyAccessToken(token string) (*AccessClaims, error)
	VerifyRefreshToken(token string) (*RefreshClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// AccountStore is the persistence contract the lifecycle manager depends on.
// Implementations must enforce email uniqueness and perform the refresh slot
// swaps atomically against the stored value.
type AccountStore interface {
	ByID(ctx context.Context, id string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	ByVerificationToken(ctx context.Context, token string) (*Account, error)
	ByResetToken(ctx context.Context, token string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	MarkVerified(ctx context.Context, id string) error

	// SetRefreshToken overwrites the refresh slot unconditionally. A login
	// from a second device invalidates the first session by overwrite.
	SetRefreshToken(ctx context.Context, id, value string) error

	// SwapRefreshToken conditionally replaces the stored refresh token.
	// The swap only happens when the stored value still equals current;
	// it reports whether this caller won the slot. Pass next == "" to
	// clear the slot (logout).
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)

	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// ReplacePassword swaps the password hash and clears the reset token,
	// its expiry, and the refresh slot in one mutation.
	ReplacePassword(ctx context.Context, id, passwordHash string) error

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSucccessfulLogin(ctx context.Context, account *Account) error
}

// Notifier delivers messages out of band. Failures are non fatal to callers.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds credential options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetPreviousAccessSigningKey() string
	GetPreviousRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetBaseURL() string
	GetClientBaseURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CREDENTIALS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
