package http

import (
	"net/http"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// LogoutHandler serves POST /v1/session/logout. Idempotent: logging out
// an anonymous or already-ended session still returns 200, so a client
// can always fire-and-forget this call.
type LogoutHandler struct {
	Authenticator *service.Authenticator
}

// ServeHTTP godoc
//
//	@Summary		Log out the current session
//	@Description	Unbinds the session from its principal, fires the logout
//	@Description	notification and discards the server-side session. Always 200.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	map[string]bool	"logged_out"
//	@Router			/v1/session/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := h.Authenticator.Sessions.RequestedID(r)
	if sessionID == "" {
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"logged_out": false})
		return
	}

	principal, err := h.Authenticator.Lookup.FindByCredential(ctx, domain.SessionCredential(sessionID))
	if err != nil || principal == nil {
		// Nobody bound; still discard the session itself.
		h.Authenticator.Sessions.Invalidate(ctx, w, sessionID)
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"logged_out": false})
		return
	}

	if err := h.Authenticator.DoLogout(w, r, *principal); err != nil {
		log.Warn("logout cleanup failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}
