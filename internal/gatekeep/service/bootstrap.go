package service

import (
	"context"
	"errors"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/cryptox"
	"github.com/corvid-labs/gatekeep/pkg/idx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// Bootstrap creates the first administrative principal. Normal principal
// creation is the job of an external user-management collaborator; this
// exists only so a fresh install has someone to log in as.
type Bootstrap struct {
	Store store.Store
	Token string // pre-configured bootstrap token
}

func (s *Bootstrap) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Principals().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Create builds the initial admin principal, guarded by the pre-shared
// token. Returns the new principal's id.
func (s *Bootstrap) Create(ctx context.Context, token, name, email, password string) (string, error) {
	log := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return "", err
	}
	if bootstrapped {
		log.Warn("attempted bootstrap on already-bootstrapped system")
		return "", ErrBootstrapAlready
	}

	if token != s.Token {
		log.Warn("unauthorized bootstrap attempt")
		return "", ErrBootstrapUnauthorized
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return "", err
	}

	id := idx.New().String()
	err = s.Store.Principals().Create(ctx, domain.Principal{
		ID:             id,
		Name:           name,
		Email:          email,
		PasswordDigest: cryptox.Digest(password, salt),
		Salt:           salt,
		IsAdmin:        true,
	})
	if err != nil {
		log.Error("failed to create initial principal", "error", err)
		return "", err
	}

	log.Info("system bootstrapped", "principal_id", id)
	return id, nil
}
