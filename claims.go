package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims assert {accountId, role} for a single API call window.
// They are never persisted; validity is purely cryptographic and time based.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the account id the token was minted for.
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role claim.
func (c *AccessClaims) Role() string {
	return c.UserRole
}

// HasRole checks if the claims carry a specific role
func (c *AccessClaims) HasRole(role Role) bool {
	return Role(c.UserRole) == role
}

// IsAtLeast checks if the claims role is at least the minimum required role
func (c *AccessClaims) IsAtLeast(minRole Role) bool {
	return Role(c.UserRole).IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// RefreshClaims assert {accountId} only. Possession is not enough: the encoded
// value must also match the account's stored refresh slot.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the account id the token was minted for.
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func ensureTokenID(rc *jwt.RegisteredClaims) {
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
}
