package tokenx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default TTLs for the two token kinds issued at login.
const (
	// DefaultAccessTTL keeps access tokens short-lived; a compromised
	// bearer token ages out quickly.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL bounds how long a client can stay signed in
	// without re-presenting credentials.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrIssuer   = errors.New("tokenx: issuer mismatch")
	ErrExpired  = errors.New("tokenx: token expired")
	ErrNotYet   = errors.New("tokenx: token not yet valid")
	ErrInvalid  = errors.New("tokenx: invalid token")
	ErrNoSigner = errors.New("tokenx: signer not initialised")
)

// Claims are the access-token claims. The subject is the principal ID;
// sid ties the token back to the server-side session it was minted for.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session identifier bound at login, empty for tokens
	// minted outside a browser session.
	SID string `json:"sid,omitempty"`

	// Name is the principal's display name.
	Name string `json:"name,omitempty"`

	// Admin marks administrative principals.
	Admin bool `json:"admin,omitempty"`
}

// NewClaims builds minimally-correct claims for an access token.
func NewClaims(subject, sid, name string, admin bool, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SID:   sid,
		Name:  name,
		Admin: admin,
	}
}

// validate checks issuer and time bounds. Signature validity is the
// verifier's job.
func (c *Claims) validate(issuer string, now time.Time) error {
	if issuer != "" && c.Issuer != issuer {
		return ErrIssuer
	}
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYet
	}
	return nil
}
