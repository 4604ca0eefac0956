package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// SuperuserConfig is the config-derived bypass identity. When Name is
// empty the bypass is disabled.
type SuperuserConfig struct {
	Name     string
	Password string
}

// Lookup resolves principals by credential. It only reads; session state
// transitions belong to the Authenticator.
type Lookup struct {
	Store     store.Store
	Superuser SuperuserConfig
}

// FindByPassword authenticates a name/password pair and returns the
// matching principal.
//
// The superuser pair is checked first and returns the non-persisted
// superuser principal without consulting storage, even if storage would
// also match. Every rejection — unknown name, blocked account, empty
// password, digest mismatch — returns ErrInvalidCredentials with
// identical text; internal logs record the real reason.
func (l *Lookup) FindByPassword(ctx context.Context, name, password string) (*domain.Principal, error) {
	log := slogx.FromContext(ctx)

	if l.superuserMatch(name, password) {
		su := domain.Superuser(l.Superuser.Name)
		log.Info("superuser authenticated")
		return &su, nil
	}

	p, err := l.Store.Principals().GetByName(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			// Storage faults during explicit login still surface as the
			// generic rejection; the client must not learn the backend is
			// unhealthy through the login endpoint.
			log.Warn("principal lookup failed", "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	if p.Blocked {
		log.Warn("blocked principal attempted login", "principal_id", p.ID)
		return nil, ErrInvalidCredentials
	}

	if password == "" {
		log.Info("empty password", "principal_id", p.ID)
		return nil, ErrInvalidCredentials
	}

	if !p.ValidPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return &p, nil
}

// FindByCredential resolves a principal by an equality credential. Absence
// is a normal outcome and returns (nil, nil); only a malformed credential
// is an error. Transient storage faults are logged and treated as "no
// principal" so an anonymous request can still proceed.
func (l *Lookup) FindByCredential(ctx context.Context, cred domain.Credential) (*domain.Principal, error) {
	log := slogx.FromContext(ctx)

	if cred.Value == "" {
		return nil, nil
	}

	switch cred.Kind {
	case domain.ByName:
		p, err := l.Store.Principals().GetByName(ctx, cred.Value)
		return l.oneOrNone(ctx, p, err)

	case domain.ByToken:
		p, err := l.Store.Principals().GetByRefreshTokenFingerprint(ctx, cred.Value)
		return l.oneOrNone(ctx, p, err)

	case domain.BySessionID:
		matches, err := l.Store.Principals().ListBySessionID(ctx, cred.Value)
		if err != nil {
			log.Warn("session credential lookup failed", "error", err)
			return nil, nil
		}
		switch len(matches) {
		case 0:
			return nil, nil
		case 1:
			p := matches[0]
			return &p, nil
		default:
			// A session id bound to several principals should not happen.
			// Pick none and proceed unauthenticated rather than guess.
			log.Warn("ambiguous session binding",
				"session_id", cred.Value,
				"principals", len(matches),
			)
			return nil, nil
		}

	default:
		return nil, fmt.Errorf("unknown credential kind %d", cred.Kind)
	}
}

func (l *Lookup) oneOrNone(ctx context.Context, p domain.Principal, err error) (*domain.Principal, error) {
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("credential lookup failed", "error", err)
		}
		return nil, nil
	}
	return &p, nil
}

// superuserMatch compares both halves of the configured pair in constant
// time. Name-only matches fall through to storage so a regular account
// may share the superuser's name.
func (l *Lookup) superuserMatch(name, password string) bool {
	if l.Superuser.Name == "" {
		return false
	}
	nameOK := subtle.ConstantTimeCompare([]byte(name), []byte(l.Superuser.Name)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(l.Superuser.Password)) == 1
	return nameOK && passOK
}
