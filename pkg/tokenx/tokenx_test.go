package tokenx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIssuer = "gatekeep-test"

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	keyring, err := NewKeyring(testIssuer)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewClaims("principal-1", "session-1", "alice", true, testIssuer, DefaultAccessTTL, now)

	token, err := keyring.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := keyring.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "principal-1", got.Subject)
	require.Equal(t, "session-1", got.SID)
	require.Equal(t, "alice", got.Name)
	require.True(t, got.Admin)
	require.Equal(t, testIssuer, got.Issuer)
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()

	keyring, err := NewKeyring(testIssuer)
	require.NoError(t, err)
	now := time.Now().UTC()

	t.Run("expired token", func(t *testing.T) {
		claims := NewClaims("p", "", "", false, testIssuer, time.Minute, now.Add(-time.Hour))
		token, err := keyring.Sign(claims)
		require.NoError(t, err)

		_, err = keyring.Verify(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := NewClaims("p", "", "", false, "someone-else", DefaultAccessTTL, now)
		token, err := keyring.Sign(claims)
		require.NoError(t, err)

		_, err = keyring.Verify(token)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("token from another keyring", func(t *testing.T) {
		other, err := NewKeyring(testIssuer)
		require.NoError(t, err)
		claims := NewClaims("p", "", "", false, testIssuer, DefaultAccessTTL, now)
		token, err := other.Sign(claims)
		require.NoError(t, err)

		_, err = keyring.Verify(token)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("tampered token", func(t *testing.T) {
		claims := NewClaims("p", "", "", false, testIssuer, DefaultAccessTTL, now)
		token, err := keyring.Sign(claims)
		require.NoError(t, err)

		_, err = keyring.Verify(token + "x")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := keyring.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestSignWithoutKeys(t *testing.T) {
	t.Parallel()

	var keyring *Keyring
	_, err := keyring.Sign(Claims{})
	require.ErrorIs(t, err, ErrNoSigner)
}
