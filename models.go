package credentials

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the identity record. It carries at most one outstanding
// verification token, one reset token with its expiry, and one refresh token
// value: the single active session model.
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              string     `bun:"name,notnull" json:"name,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	Role              Role       `bun:"role,notnull" json:"role,omitempty"`
	Verified          bool       `bun:"is_verified" json:"is_verified"`
	VerificationToken *string    `bun:"verification_token,nullzero" json:"-"`
	// ConsumedVerificationToken keeps the spent token value so a repeat
	// verification reports "already verified" instead of failing. It is not
	// an outstanding token: a verified account never has VerificationToken.
	ConsumedVerificationToken *string    `bun:"consumed_verification_token,nullzero" json:"-"`
	ResetToken                *string    `bun:"reset_token,nullzero" json:"-"`
	ResetExpiresAt            *time.Time `bun:"reset_expires_at,nullzero" json:"-"`
	RefreshToken              *string    `bun:"refresh_token,nullzero" json:"-"`
	LoginAttempts             int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt            *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt                *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt                 *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                 *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasActiveSession reports whether the account currently holds a refresh token.
func (a *Account) HasActiveSession() bool {
	return a != nil && a.RefreshToken != nil && *a.RefreshToken != ""
}

// CurrentRefreshToken returns the stored refresh value or the empty string.
func (a *Account) CurrentRefreshToken() string {
	if a == nil || a.RefreshToken == nil {
		return ""
	}
	return *a.RefreshToken
}

// Identity adapts the account to the Identity interface used for token minting.
func (a *Account) Identity() Identity {
	return accountIdentity{
		id:    a.ID.String(),
		email: a.Email,
		role:  string(a.Role),
	}
}

type accountIdentity struct {
	id    string
	email string
	role  string
}

func (i accountIdentity) ID() string    { return i.id }
func (i accountIdentity) Email() string { return i.email }
func (i accountIdentity) Role() string  { return i.role }

var _ Identity = accountIdentity{}
