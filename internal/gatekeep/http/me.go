package http

import (
	"net/http"
	"strings"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"
)

// MeHandler serves GET /v1/session/me. It resolves the caller from the
// session cookie, falling back to a bearer access token, and reports who
// (if anyone) the request is authenticated as. An anonymous caller gets
// 200 with authenticated=false rather than an error; every page view
// passes through here and an expired session is not a failure.
type MeHandler struct {
	Authenticator *service.Authenticator
	Keyring       *tokenx.Keyring
	Store         store.Store
}

type meResponse struct {
	Authenticated bool           `json:"authenticated"`
	Principal     *principalView `json:"principal,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Identify the current caller
//	@Description	Resolves the principal bound to the session cookie, or to a
//	@Description	bearer access token when no session is bound. Anonymous
//	@Description	callers receive authenticated=false, not an error.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	meResponse
//	@Router			/v1/session/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	httpx.NoCache(w)

	principal, err := h.Authenticator.CheckSessionAuthentication(w, r)
	if err != nil {
		log.Error("session layer unavailable", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "session unavailable")
		return
	}

	if principal == nil {
		principal = h.fromBearer(r)
	}

	if principal == nil {
		httpx.WriteJSON(w, http.StatusOK, meResponse{Authenticated: false})
		return
	}

	view := viewPrincipal(*principal)
	httpx.WriteJSON(w, http.StatusOK, meResponse{Authenticated: true, Principal: &view})
}

// fromBearer resolves a principal from an Authorization: Bearer access
// token. Any failure means "not authenticated this way", never an error.
func (h *MeHandler) fromBearer(r *http.Request) *domain.Principal {
	raw := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	claims, err := h.Keyring.Verify(token)
	if err != nil {
		return nil
	}

	ctx := r.Context()
	principal, err := h.Store.Principals().GetByID(ctx, claims.Subject)
	if err != nil || principal.Blocked {
		return nil
	}
	return &principal
}
