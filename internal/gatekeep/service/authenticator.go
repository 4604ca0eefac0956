package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// Authenticator coordinates login, logout and per-request session
// re-validation. It owns every session state transition; Lookup only
// reads. All collaborators are injected at construction, there is no
// process-wide state.
type Authenticator struct {
	Store    store.Store
	Lookup   *Lookup
	Sessions *Sessions
	Notifier Notifier
}

// CheckSessionAuthentication resolves the principal for an incoming
// request, rotating or creating sessions as needed.
//
// The possible paths:
//  1. No session id presented: create a fresh session, return no
//     principal. A session that did not exist a moment ago cannot carry
//     an authenticated principal.
//  2. Presented id matches a live session within the timeout: touch it
//     and return whatever principal is bound (nil for anonymous
//     browsing).
//  3. Presented id matches a timed-out session: log out whoever was
//     bound, discard the session, issue a fresh one, return no principal.
//  4. Presented id matches nothing server-side: same cleanup as 3 for the
//     stale id, then a fresh session.
//
// Only a broken session layer returns an error. Everything else —
// timeouts, storage hiccups during lookup, stale ids — degrades to "no
// principal", because an unauthenticated visitor is a valid state and an
// expired session must not break an anonymous page view.
func (a *Authenticator) CheckSessionAuthentication(w http.ResponseWriter, r *http.Request) (*domain.Principal, error) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	requested := a.Sessions.RequestedID(r)
	if requested == "" {
		if _, err := a.Sessions.New(ctx, w); err != nil {
			return nil, err
		}
		return nil, nil
	}

	sess, err := a.Store.Sessions().Get(ctx, requested)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The client presented an id the server no longer knows.
		a.invalidateStale(ctx, w, requested)
		if _, err := a.Sessions.New(ctx, w); err != nil {
			return nil, err
		}
		return nil, nil

	case err != nil:
		log.Warn("session lookup failed, treating request as anonymous", "error", err)
		return nil, nil
	}

	if a.Sessions.IsTimedOut(&sess, time.Now().UTC()) {
		a.invalidateStale(ctx, w, requested)
		if _, err := a.Sessions.New(ctx, w); err != nil {
			return nil, err
		}
		return nil, nil
	}

	a.Sessions.Touch(ctx, sess.ID)

	principal, err := a.Lookup.FindByCredential(ctx, domain.SessionCredential(sess.ID))
	if err != nil {
		log.Warn("principal resolution failed, treating request as anonymous", "error", err)
		return nil, nil
	}
	return principal, nil
}

// Login authenticates a name/password pair (plus TOTP code when the
// principal has a confirmed second factor) and binds the resulting
// principal to a session via DoLogin.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request, name, password, code string) (*domain.Principal, domain.Session, error) {
	ctx := r.Context()

	principal, err := a.Lookup.FindByPassword(ctx, name, password)
	if err != nil {
		return nil, domain.Session{}, err
	}

	if principal.TwoFactorRequired() {
		if code == "" {
			return nil, domain.Session{}, ErrTwoFactorRequired
		}
		if !totp.Validate(code, *principal.TwoFactorSecret) {
			slogx.FromContext(ctx).Warn("two-factor validation failed", "principal_id", principal.ID)
			return nil, domain.Session{}, ErrInvalidTwoFactorCode
		}
	}

	sess, err := a.DoLogin(w, r, *principal)
	if err != nil {
		return nil, domain.Session{}, err
	}
	return principal, sess, nil
}

// DoLogin binds a principal to the request's session, creating one when
// necessary. Any stale bindings for the session id are cleared first: a
// session id must never end up bound to two principals. Fires the login
// notification.
func (a *Authenticator) DoLogin(w http.ResponseWriter, r *http.Request, principal domain.Principal) (domain.Session, error) {
	ctx := r.Context()

	sess, err := a.ensureSession(ctx, w, r)
	if err != nil {
		return domain.Session{}, err
	}

	if err := a.Sessions.ClearAllFor(ctx, sess.ID); err != nil {
		return domain.Session{}, err
	}

	// The superuser is never persisted, so there is no record to bind a
	// session to. Its authentication lives and dies with the tokens
	// minted at login.
	if !principal.IsSuperuser() {
		if err := a.Store.Principals().BindSession(ctx, principal.ID, sess.ID); err != nil {
			return domain.Session{}, err
		}
	}

	a.notify(ctx, EventLogin, principal)
	return sess, nil
}

// DoLogout unbinds the request's session from the principal, fires the
// logout notification and discards the underlying session. Cleanup after
// the unbind is best-effort; the binding removal itself is the part that
// matters.
func (a *Authenticator) DoLogout(w http.ResponseWriter, r *http.Request, principal domain.Principal) error {
	ctx := r.Context()

	requested := a.Sessions.RequestedID(r)
	if requested == "" {
		return nil
	}

	if err := a.Sessions.ClearAllFor(ctx, requested); err != nil {
		return err
	}

	a.notify(ctx, EventLogout, principal)
	a.Sessions.Invalidate(ctx, w, requested)
	return nil
}

// invalidateStale clears every trace of a session id that is being
// discarded: whoever was bound to it is logged out (with notification),
// the bindings are removed, and the server-side record is dropped
// best-effort.
func (a *Authenticator) invalidateStale(ctx context.Context, w http.ResponseWriter, sessionID string) {
	principal, err := a.Lookup.FindByCredential(ctx, domain.SessionCredential(sessionID))
	if err == nil && principal != nil {
		a.notify(ctx, EventLogout, *principal)
	}

	bestEffort(ctx, "clear stale session bindings", func() error {
		return a.Sessions.ClearAllFor(ctx, sessionID)
	})
	a.Sessions.Invalidate(ctx, w, sessionID)
}

func (a *Authenticator) ensureSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.Session, error) {
	if requested := a.Sessions.RequestedID(r); requested != "" {
		sess, err := a.Store.Sessions().Get(ctx, requested)
		if err == nil && !a.Sessions.IsTimedOut(&sess, time.Now().UTC()) {
			a.Sessions.Touch(ctx, sess.ID)
			return sess, nil
		}
		// Stale or unknown: clean it up before issuing a replacement.
		a.invalidateStale(ctx, w, requested)
	}
	return a.Sessions.New(ctx, w)
}

func (a *Authenticator) notify(ctx context.Context, event Event, principal domain.Principal) {
	if a.Notifier == nil {
		return
	}
	a.Notifier.Notify(ctx, event, principal)
}
