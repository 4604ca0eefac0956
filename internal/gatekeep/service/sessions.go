package service

import (
	"context"
	"net/http"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/idx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// CookieName carries the opaque session identifier. Only the identifier
// crosses the wire; all session state lives server-side.
const CookieName = "gk_session"

// sessionCreateAttempts bounds how often New retries a failed insert
// before declaring the session layer broken.
const sessionCreateAttempts = 2

// Sessions owns the lifetime of server-side session records and the
// cookie that references them. The inactivity timeout is global, never
// per-session.
type Sessions struct {
	Store   store.Store
	Timeout time.Duration // global inactivity timeout

	// Secure marks issued cookies as HTTPS-only. Off in dev.
	Secure bool
}

// New creates a session record and sets the session cookie. A failed
// insert is retried once; failing twice means the storage layer is
// misconfigured or down, which is logged at error severity and returned —
// there is no point retrying further.
func (s *Sessions) New(ctx context.Context, w http.ResponseWriter) (domain.Session, error) {
	log := slogx.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= sessionCreateAttempts; attempt++ {
		now := time.Now().UTC()
		sess := domain.Session{
			ID:           idx.New().String(),
			CreatedAt:    now,
			LastAccessed: now,
		}
		if err := s.Store.Sessions().Create(ctx, sess); err != nil {
			lastErr = err
			log.Warn("session create failed", "attempt", attempt, "error", err)
			continue
		}
		s.setCookie(w, sess.ID)
		return sess, nil
	}

	log.Error("session layer failed to produce a session, giving up",
		"attempts", sessionCreateAttempts,
		"error", lastErr,
	)
	return domain.Session{}, ErrSessionUnavailable
}

// RequestedID returns the session id the client presented, or "" when the
// request carries no session cookie.
func (s *Sessions) RequestedID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// IsTimedOut reports whether the session has exceeded the global
// inactivity timeout. A nil session is timed out by definition. Idle time
// exactly equal to the timeout is still valid.
func (s *Sessions) IsTimedOut(sess *domain.Session, now time.Time) bool {
	if sess == nil {
		return true
	}
	return sess.IdleFor(now) > s.Timeout
}

// Touch refreshes the last-accessed timestamp. Best-effort: a failed
// touch only shortens the session's life, it never fails the request.
func (s *Sessions) Touch(ctx context.Context, sessionID string) {
	bestEffort(ctx, "touch session", func() error {
		return s.Store.Sessions().Touch(ctx, sessionID, time.Now().UTC())
	})
}

// ClearAllFor removes the given session id from every principal that
// references it. There should be at most one, but duplicates are healed
// rather than reported. Idempotent: clearing an id with no bindings is a
// successful no-op.
func (s *Sessions) ClearAllFor(ctx context.Context, sessionID string) error {
	n, err := s.Store.Principals().UnbindSessionEverywhere(ctx, sessionID)
	if err != nil {
		return err
	}
	if n > 1 {
		slogx.FromContext(ctx).Warn("healed duplicate session bindings",
			"session_id", sessionID,
			"removed", n,
		)
	}
	return nil
}

// Invalidate discards the server-side record for a session being thrown
// away and expires the client cookie. Best-effort by design: the session
// is already dead, a failed delete only leaves an idle row for
// housekeeping.
func (s *Sessions) Invalidate(ctx context.Context, w http.ResponseWriter, sessionID string) {
	bestEffort(ctx, "invalidate session", func() error {
		return s.Store.Sessions().Delete(ctx, sessionID)
	})
	if w != nil {
		s.expireCookie(w)
	}
}

func (s *Sessions) setCookie(w http.ResponseWriter, sessionID string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.Timeout.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// bestEffort runs cleanup that must never block the primary flow. The
// intent of a swallowed failure stays visible in the debug log instead of
// a silent recover.
func bestEffort(ctx context.Context, op string, fn func() error) {
	if err := fn(); err != nil {
		slogx.FromContext(ctx).Debug("best-effort cleanup failed", "op", op, "error", err)
	}
}
