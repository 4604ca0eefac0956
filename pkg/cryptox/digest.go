package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const saltLength = 16 // bytes of entropy per salt

// Digest computes the stored credential digest for a password.
//
// Without a salt the digest is a plain one-way hash of the password
// (legacy mode, kept for records created before salting was introduced).
// With a salt, the password is hashed first and the intermediate digest
// is hashed again together with the salt. Both modes are deterministic:
// the same (password, salt) pair always produces the same digest, and
// an empty password is valid input.
func Digest(password, salt string) string {
	inner := sha3.Sum512([]byte(password))
	if salt == "" {
		return hex.EncodeToString(inner[:])
	}

	outer := sha3.Sum512([]byte(hex.EncodeToString(inner[:]) + salt))
	return hex.EncodeToString(outer[:])
}

// DigestMatches compares a candidate password against a stored digest in
// constant time.
func DigestMatches(password, salt, storedDigest string) bool {
	computed := Digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}

// NewSalt generates a random base64url salt for a new credential.
func NewSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
