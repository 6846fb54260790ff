package shield

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured JWT claims for a POSGuard session
type AuthClaims interface {
	Subject() string
	UserID() string
	DisplayName() string
	Role() string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim, the identity's email
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user identifier
func (c *JWTClaims) UserID() string {
	return c.Subject()
}

// DisplayName returns the identity's display name
func (c *JWTClaims) DisplayName() string {
	return c.Name
}

// Role returns the session role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// HasRole checks if the session carries the given role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Identity rebuilds the directory identity the claims were minted from.
func (c *JWTClaims) Identity() *Identity {
	return &Identity{
		Identifier:  c.Subject(),
		DisplayName: c.Name,
		Role:        UserRole(c.UserRole),
	}
}
