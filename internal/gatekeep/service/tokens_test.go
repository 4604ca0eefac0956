package service

import (
	"context"
	"testing"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T) (*Tokens, *tokenx.Keyring) {
	t.Helper()

	keyring, err := tokenx.NewKeyring("gatekeep-test")
	require.NoError(t, err)

	return &Tokens{
		Store:      newTestStore(t),
		Keyring:    keyring,
		Issuer:     "gatekeep-test",
		AccessTTL:  tokenx.DefaultAccessTTL,
		RefreshTTL: tokenx.DefaultRefreshTTL,
	}, keyring
}

func TestTokensIssue(t *testing.T) {
	tokens, keyring := newTestTokens(t)
	ctx := context.Background()

	alice := createPrincipal(t, tokens.Store, "alice", "secret")

	t.Run("pair carries verifiable claims", func(t *testing.T) {
		pair, err := tokens.Issue(ctx, alice, "session-1")
		require.NoError(t, err)
		require.Equal(t, "Bearer", pair.TokenType)
		require.NotEmpty(t, pair.RefreshToken)
		require.EqualValues(t, tokens.AccessTTL.Seconds(), pair.ExpiresIn)

		claims, err := keyring.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, alice.ID, claims.Subject)
		require.Equal(t, "session-1", claims.SID)
		require.Equal(t, "alice", claims.Name)
	})

	t.Run("refresh token is stored as a fingerprint only", func(t *testing.T) {
		pair, err := tokens.Issue(ctx, alice, "")
		require.NoError(t, err)

		stored, err := tokens.Store.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotContains(t, stored.RefreshTokens, pair.RefreshToken)
		require.NotEmpty(t, stored.RefreshTokens)
	})

	t.Run("superuser gets no refresh token", func(t *testing.T) {
		pair, err := tokens.Issue(ctx, domain.Superuser("root"), "session-2")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.Empty(t, pair.RefreshToken)
	})
}

func TestTokensRefresh(t *testing.T) {
	tokens, _ := newTestTokens(t)
	ctx := context.Background()

	alice := createPrincipal(t, tokens.Store, "alice", "secret")
	pair, err := tokens.Issue(ctx, alice, "")
	require.NoError(t, err)

	t.Run("rotation mints a new pair and kills the old token", func(t *testing.T) {
		principal, next, err := tokens.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, alice.ID, principal.ID)
		require.NotEmpty(t, next.RefreshToken)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		// Replaying the consumed token fails.
		_, _, err = tokens.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)

		// The rotated token works.
		_, _, err = tokens.Refresh(ctx, next.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("unknown token is ErrInvalidGrant", func(t *testing.T) {
		_, _, err := tokens.Refresh(ctx, "never-issued")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("blocked principal cannot refresh", func(t *testing.T) {
		bob := createPrincipal(t, tokens.Store, "bob", "secret")
		bobPair, err := tokens.Issue(ctx, bob, "")
		require.NoError(t, err)

		require.NoError(t, tokens.Store.Principals().SetBlocked(ctx, bob.ID, true))

		_, _, err = tokens.Refresh(ctx, bobPair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired token is ErrInvalidGrant", func(t *testing.T) {
		short := &Tokens{
			Store:      tokens.Store,
			Keyring:    tokens.Keyring,
			Issuer:     tokens.Issuer,
			AccessTTL:  tokens.AccessTTL,
			RefreshTTL: -time.Minute,
		}
		expired, err := short.Issue(ctx, alice, "")
		require.NoError(t, err)

		_, _, err = tokens.Refresh(ctx, expired.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestTokensRevoke(t *testing.T) {
	tokens, _ := newTestTokens(t)
	ctx := context.Background()

	alice := createPrincipal(t, tokens.Store, "alice", "secret")
	pair, err := tokens.Issue(ctx, alice, "")
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, pair.RefreshToken))

	_, _, err = tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidGrant)

	t.Run("revoking an unknown token is not an error", func(t *testing.T) {
		require.NoError(t, tokens.Revoke(ctx, "never-issued"))
	})
}
