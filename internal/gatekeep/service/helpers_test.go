package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/corvid-labs/gatekeep/pkg/cryptox"
	"github.com/corvid-labs/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// createPrincipal inserts a principal with a salted digest for password
// and returns it as stored.
func createPrincipal(t *testing.T, st store.Store, name, password string) domain.Principal {
	t.Helper()
	ctx := context.Background()

	salt, err := cryptox.NewSalt()
	require.NoError(t, err)

	p := domain.Principal{
		ID:             idx.New().String(),
		Name:           name,
		Email:          name + "@example.com",
		PasswordDigest: cryptox.Digest(password, salt),
		Salt:           salt,
	}
	require.NoError(t, st.Principals().Create(ctx, p))

	stored, err := st.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	return stored
}

// flakyStore overlays a working store with injectable session failures.
type flakyStore struct {
	store.Store
	sessions *flakySessions
}

func (s *flakyStore) Sessions() store.Sessions { return s.sessions }

type flakySessions struct {
	store.Sessions
	createCalls int
	createErr   error
	getErr      error
}

func (s *flakySessions) Create(ctx context.Context, sess domain.Session) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	return s.Sessions.Create(ctx, sess)
}

func (s *flakySessions) Get(ctx context.Context, id string) (domain.Session, error) {
	if s.getErr != nil {
		return domain.Session{}, s.getErr
	}
	return s.Sessions.Get(ctx, id)
}

func newFlakyStore(t *testing.T) (*flakyStore, *flakySessions) {
	t.Helper()
	st := newTestStore(t)
	sessions := &flakySessions{Sessions: st.Sessions()}
	return &flakyStore{Store: st, sessions: sessions}, sessions
}

// logRecorder is a slog.Handler that keeps every record for assertions.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *logRecorder) WithGroup(string) slog.Handler      { return h }

func (h *logRecorder) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}
