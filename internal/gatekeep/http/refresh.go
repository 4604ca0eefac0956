package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// RefreshHandler serves POST /v1/session/refresh, exchanging a refresh
// token for a fresh pair. The presented token is invalidated on success
// (rotation), so a replayed token fails.
type RefreshHandler struct {
	Tokens *service.Tokens
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a valid refresh token for a new access/refresh pair.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	loginResponse
//	@Failure		401		{object}	map[string]string	"invalid_grant"
//	@Router			/v1/session/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	principal, pair, err := h.Tokens.Refresh(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, service.ErrInvalidGrant):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "refresh token rejected")
		return
	case err != nil:
		log.Error("token refresh failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "refresh unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Principal: viewPrincipal(*principal),
		Tokens:    pair,
	})
}
