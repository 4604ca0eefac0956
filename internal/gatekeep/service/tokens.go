package service

import (
	"context"
	"errors"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/cryptox"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"
)

// Tokens mints and rotates the token pair issued alongside a session at
// login. Refresh tokens are stored as fingerprints against the principal;
// the superuser gets an access token only, since there is no record to
// hang a refresh token off.
type Tokens struct {
	Store      store.Store
	Keyring    *tokenx.Keyring
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue mints a token pair for an authenticated principal. sessionID ties
// the access token to the server-side session and may be empty for
// token-only clients.
func (t *Tokens) Issue(ctx context.Context, principal domain.Principal, sessionID string) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := t.Keyring.Sign(tokenx.NewClaims(
		principal.ID, sessionID, principal.Name, principal.IsAdmin,
		t.Issuer, t.AccessTTL, now,
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(t.AccessTTL.Seconds()),
	}

	if principal.IsSuperuser() {
		return pair, nil
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}
	err = t.Store.Principals().AddRefreshToken(ctx,
		principal.ID, cryptox.FingerprintToken(refresh), now.Add(t.RefreshTTL))
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair.RefreshToken = refresh
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// fingerprint in one transaction so the old token cannot be replayed.
func (t *Tokens) Refresh(ctx context.Context, refreshToken string) (*domain.Principal, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	fingerprint := cryptox.FingerprintToken(refreshToken)

	principal, err := t.Store.Principals().GetByRefreshTokenFingerprint(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("refresh token lookup failed", "error", err)
		}
		return nil, domain.TokenPair{}, ErrInvalidGrant
	}
	if principal.Blocked {
		log.Warn("blocked principal attempted token refresh", "principal_id", principal.ID)
		return nil, domain.TokenPair{}, ErrInvalidGrant
	}

	now := time.Now().UTC()
	access, err := t.Keyring.Sign(tokenx.NewClaims(
		principal.ID, "", principal.Name, principal.IsAdmin,
		t.Issuer, t.AccessTTL, now,
	))
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	next, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	err = t.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Principals().RemoveRefreshToken(ctx, fingerprint); err != nil {
			return err
		}
		return tx.Principals().AddRefreshToken(ctx,
			principal.ID, cryptox.FingerprintToken(next), now.Add(t.RefreshTTL))
	})
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	return &principal, domain.TokenPair{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.AccessTTL.Seconds()),
	}, nil
}

// Revoke drops a refresh token. Unknown tokens are not an error; the
// caller learns nothing about whether the token existed.
func (t *Tokens) Revoke(ctx context.Context, refreshToken string) error {
	return t.Store.Principals().RemoveRefreshToken(ctx, cryptox.FingerprintToken(refreshToken))
}
