package domain

import (
	"time"

	"github.com/corvid-labs/gatekeep/pkg/cryptox"
)

// SuperuserID is the fixed identifier of the config-derived superuser.
// It is the ULID zero value, which no persisted principal can be given.
const SuperuserID = "00000000000000000000000000"

// Principal is an identity that can authenticate: a stored user or the
// non-persisted superuser.
type Principal struct {
	ID             string
	Name           string
	Email          string
	PasswordDigest string // hex digest, see cryptox.Digest; never plaintext
	Salt           string
	Blocked        bool
	IsAdmin        bool

	// SessionIDs are the server-side sessions currently bound to this
	// principal. At most one principal may hold a given session ID.
	SessionIDs []string

	// RefreshTokens holds fingerprints of the principal's active refresh
	// tokens, never the tokens themselves.
	RefreshTokens []string

	// TwoFactorSecret is the base32 TOTP secret, nil when unenrolled.
	// TwoFactorConfirmed is set once the user has proven possession.
	TwoFactorSecret    *string
	TwoFactorConfirmed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Superuser builds the privileged bypass principal from configuration.
// It is never persisted and always passes admin checks.
func Superuser(name string) Principal {
	return Principal{
		ID:      SuperuserID,
		Name:    name,
		IsAdmin: true,
	}
}

// IsSuperuser reports whether p is the config-derived superuser.
func (p Principal) IsSuperuser() bool { return p.ID == SuperuserID }

// ValidPassword checks a candidate password against the stored digest and
// salt in constant time. Blocked principals never validate.
func (p Principal) ValidPassword(password string) bool {
	if p.Blocked || p.PasswordDigest == "" {
		return false
	}
	return cryptox.DigestMatches(password, p.Salt, p.PasswordDigest)
}

// TwoFactorRequired reports whether login must present a TOTP code.
func (p Principal) TwoFactorRequired() bool {
	return p.TwoFactorSecret != nil && *p.TwoFactorSecret != "" && p.TwoFactorConfirmed
}
