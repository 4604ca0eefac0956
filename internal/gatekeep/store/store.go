package store

import (
	"context"
	"errors"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it.
// Sub-repositories keep concerns tidy and let tests target one surface at
// a time.
type Store interface {
	Principals() Principals
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Principals interface {
	// GetByID returns a principal by id.
	GetByID(ctx context.Context, id string) (domain.Principal, error)

	// GetByName resolves by username or email address; login accepts
	// either.
	GetByName(ctx context.Context, name string) (domain.Principal, error)

	// ListBySessionID returns every principal that holds the given session
	// binding. More than one result indicates a corrupted binding; the
	// caller decides how to react.
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.Principal, error)

	// GetByRefreshTokenFingerprint resolves by a non-expired refresh-token
	// fingerprint.
	GetByRefreshTokenFingerprint(ctx context.Context, fingerprint string) (domain.Principal, error)

	// Create inserts a new principal (id is provided by the app via ULID).
	Create(ctx context.Context, p domain.Principal) error

	// UpdatePasswordDigest replaces the stored digest and salt.
	UpdatePasswordDigest(ctx context.Context, principalID, digest, salt string) error

	// SetBlocked flips the blocked flag.
	SetBlocked(ctx context.Context, principalID string, blocked bool) error

	// SetTwoFactor stores or clears a TOTP secret. Pass nil to unenroll.
	SetTwoFactor(ctx context.Context, principalID string, secret *string, confirmed bool) error

	// BindSession attaches a session id to the principal. Re-binding the
	// same pair is a no-op.
	BindSession(ctx context.Context, principalID, sessionID string) error

	// UnbindSession detaches a session id from one principal.
	UnbindSession(ctx context.Context, principalID, sessionID string) error

	// UnbindSessionEverywhere removes the session id from every principal
	// holding it and reports how many bindings were removed. Safe to call
	// when nothing remains to clear.
	UnbindSessionEverywhere(ctx context.Context, sessionID string) (int64, error)

	// AddRefreshToken records a refresh-token fingerprint with its expiry.
	AddRefreshToken(ctx context.Context, principalID, fingerprint string, expiresAt time.Time) error

	// RemoveRefreshToken drops a single fingerprint.
	RemoveRefreshToken(ctx context.Context, fingerprint string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// IsEmpty reports whether any principal exists yet.
	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	// Create inserts a new session record.
	Create(ctx context.Context, s domain.Session) error

	// Get returns a session by id.
	Get(ctx context.Context, id string) (domain.Session, error)

	// Touch updates the last-accessed timestamp.
	Touch(ctx context.Context, id string, at time.Time) error

	// Delete removes a session record. Deleting a missing session is not
	// an error.
	Delete(ctx context.Context, id string) error

	// DeleteIdleSince removes sessions whose last access is before cutoff
	// and reports how many were removed.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
}
