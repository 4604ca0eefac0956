package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestPrincipal(t *testing.T, name string) domain.Principal {
	t.Helper()
	return domain.Principal{
		ID:             idx.New().String(),
		Name:           name,
		Email:          name + "@example.com",
		PasswordDigest: "digest-" + name,
		Salt:           "salt-" + name,
	}
}

func TestPrincipalsCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newTestPrincipal(t, "alice")
	require.NoError(t, s.Principals().Create(ctx, p))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Principals().GetByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, p.Name, got.Name)
		require.Equal(t, p.Email, got.Email)
		require.Equal(t, p.PasswordDigest, got.PasswordDigest)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := s.Principals().GetByName(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := s.Principals().GetByName(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
	})

	t.Run("unknown id is ErrNotFound", func(t *testing.T) {
		_, err := s.Principals().GetByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate name is ErrAlreadyExists", func(t *testing.T) {
		dup := newTestPrincipal(t, "alice")
		dup.Email = "other@example.com"
		err := s.Principals().Create(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestPrincipalsSessionBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestPrincipal(t, "alice")
	bob := newTestPrincipal(t, "bob")
	require.NoError(t, s.Principals().Create(ctx, alice))
	require.NoError(t, s.Principals().Create(ctx, bob))

	sessionID := idx.New().String()

	t.Run("bind and list", func(t *testing.T) {
		require.NoError(t, s.Principals().BindSession(ctx, alice.ID, sessionID))

		matches, err := s.Principals().ListBySessionID(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, alice.ID, matches[0].ID)
		require.Contains(t, matches[0].SessionIDs, sessionID)
	})

	t.Run("rebinding the same pair is a no-op", func(t *testing.T) {
		require.NoError(t, s.Principals().BindSession(ctx, alice.ID, sessionID))

		matches, err := s.Principals().ListBySessionID(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, matches, 1)
	})

	t.Run("list returns while the pool holds a single connection", func(t *testing.T) {
		// In-memory stores run on one connection; listing must not hold
		// the result rows open while issuing the binding queries.
		done := make(chan error, 1)
		go func() {
			_, err := s.Principals().ListBySessionID(ctx, sessionID)
			done <- err
		}()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("ListBySessionID did not return")
		}
	})

	t.Run("duplicate binding across principals is visible", func(t *testing.T) {
		require.NoError(t, s.Principals().BindSession(ctx, bob.ID, sessionID))

		matches, err := s.Principals().ListBySessionID(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("unbind everywhere clears all and reports count", func(t *testing.T) {
		n, err := s.Principals().UnbindSessionEverywhere(ctx, sessionID)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		matches, err := s.Principals().ListBySessionID(ctx, sessionID)
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("unbind everywhere with nothing bound is a no-op", func(t *testing.T) {
		n, err := s.Principals().UnbindSessionEverywhere(ctx, sessionID)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("unbind single pair", func(t *testing.T) {
		other := idx.New().String()
		require.NoError(t, s.Principals().BindSession(ctx, alice.ID, other))
		require.NoError(t, s.Principals().UnbindSession(ctx, alice.ID, other))

		matches, err := s.Principals().ListBySessionID(ctx, other)
		require.NoError(t, err)
		require.Empty(t, matches)
	})
}

func TestPrincipalsRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestPrincipal(t, "alice")
	require.NoError(t, s.Principals().Create(ctx, alice))

	now := time.Now().UTC()

	t.Run("resolve by live fingerprint", func(t *testing.T) {
		require.NoError(t, s.Principals().AddRefreshToken(ctx, alice.ID, "fp-live", now.Add(time.Hour)))

		got, err := s.Principals().GetByRefreshTokenFingerprint(ctx, "fp-live")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)
		require.Contains(t, got.RefreshTokens, "fp-live")
	})

	t.Run("expired fingerprint is ErrNotFound", func(t *testing.T) {
		require.NoError(t, s.Principals().AddRefreshToken(ctx, alice.ID, "fp-expired", now.Add(-time.Hour)))

		_, err := s.Principals().GetByRefreshTokenFingerprint(ctx, "fp-expired")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("removed fingerprint is ErrNotFound", func(t *testing.T) {
		require.NoError(t, s.Principals().RemoveRefreshToken(ctx, "fp-live"))

		_, err := s.Principals().GetByRefreshTokenFingerprint(ctx, "fp-live")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("housekeeping deletes expired tokens", func(t *testing.T) {
		n, err := s.Principals().DeleteExpiredRefreshTokens(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n) // fp-expired
	})
}

func TestPrincipalsUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestPrincipal(t, "alice")
	require.NoError(t, s.Principals().Create(ctx, alice))

	t.Run("update password digest", func(t *testing.T) {
		require.NoError(t, s.Principals().UpdatePasswordDigest(ctx, alice.ID, "new-digest", "new-salt"))

		got, err := s.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "new-digest", got.PasswordDigest)
		require.Equal(t, "new-salt", got.Salt)
	})

	t.Run("set two-factor secret", func(t *testing.T) {
		secret := "JBSWY3DPEHPK3PXP"
		require.NoError(t, s.Principals().SetTwoFactor(ctx, alice.ID, &secret, true))

		got, err := s.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TwoFactorSecret)
		require.Equal(t, secret, *got.TwoFactorSecret)
		require.True(t, got.TwoFactorConfirmed)

		require.NoError(t, s.Principals().SetTwoFactor(ctx, alice.ID, nil, false))
		got, err = s.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Nil(t, got.TwoFactorSecret)
	})

	t.Run("set blocked", func(t *testing.T) {
		require.NoError(t, s.Principals().SetBlocked(ctx, alice.ID, true))

		got, err := s.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.True(t, got.Blocked)
	})
}

func TestPrincipalsIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Principals().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, s.Principals().Create(ctx, newTestPrincipal(t, "alice")))

	empty, err = s.Principals().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestSessionsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := domain.Session{ID: idx.New().String(), CreatedAt: now, LastAccessed: now}

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, s.Sessions().Create(ctx, sess))

		got, err := s.Sessions().Get(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, sess.ID, got.ID)
		require.WithinDuration(t, now, got.LastAccessed, time.Second)
	})

	t.Run("touch moves last accessed forward", func(t *testing.T) {
		later := now.Add(5 * time.Minute)
		require.NoError(t, s.Sessions().Touch(ctx, sess.ID, later))

		got, err := s.Sessions().Get(ctx, sess.ID)
		require.NoError(t, err)
		require.WithinDuration(t, later, got.LastAccessed, time.Second)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Sessions().Delete(ctx, sess.ID))
		require.NoError(t, s.Sessions().Delete(ctx, sess.ID))

		_, err := s.Sessions().Get(ctx, sess.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete idle since cutoff", func(t *testing.T) {
		stale := domain.Session{ID: idx.New().String(), LastAccessed: now.Add(-2 * time.Hour)}
		fresh := domain.Session{ID: idx.New().String(), LastAccessed: now}
		require.NoError(t, s.Sessions().Create(ctx, stale))
		require.NoError(t, s.Sessions().Create(ctx, fresh))

		n, err := s.Sessions().DeleteIdleSince(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = s.Sessions().Get(ctx, stale.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Sessions().Get(ctx, fresh.ID)
		require.NoError(t, err)
	})
}

func TestWithTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestPrincipal(t, "alice")

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Principals().Create(ctx, alice)
		})
		require.NoError(t, err)

		_, err = s.Principals().GetByID(ctx, alice.ID)
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		bob := newTestPrincipal(t, "bob")
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Principals().Create(ctx, bob); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Principals().GetByID(ctx, bob.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
