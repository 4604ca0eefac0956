// Package tokenx signs and verifies the Ed25519 access tokens Gatekeep
// mints at login. Keys are generated fresh at startup: access tokens are
// short-lived, so losing the key on restart only forces clients through
// the refresh endpoint.
package tokenx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/gatekeep/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Keyring holds the signing keypair and the issuer it signs for.
type Keyring struct {
	kid    string
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewKeyring generates a fresh Ed25519 keypair with a ULID key ID.
func NewKeyring(issuer string) (*Keyring, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("tokenx: generate keypair: %w", err)
	}
	return &Keyring{
		kid:    idx.New().String(),
		priv:   priv,
		pub:    pub,
		issuer: issuer,
	}, nil
}

// KID returns the key identifier embedded in token headers.
func (k *Keyring) KID() string { return k.kid }

// Sign turns claims into a signed compact JWT.
func (k *Keyring) Sign(claims Claims) (string, error) {
	if k == nil || k.priv == nil {
		return "", ErrNoSigner
	}
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = k.kid
	return t.SignedString(k.priv)
}

// Verify validates a compact JWT and returns its claims.
func (k *Keyring) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("tokenx: missing kid")
		}
		if kid != k.kid {
			return nil, fmt.Errorf("tokenx: unknown kid %q", kid)
		}
		return k.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}

	if err := claims.validate(k.issuer, time.Now().UTC()); err != nil {
		return nil, err
	}
	return claims, nil
}
