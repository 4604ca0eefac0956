package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// LoginHandler serves POST /v1/session/login. A successful login sets the
// session cookie and returns the principal together with a token pair.
// Every credential rejection returns the same 401 body regardless of
// which factor failed.
type LoginHandler struct {
	Authenticator *service.Authenticator
	Tokens        *service.Tokens
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"` // TOTP code when enrolled
}

type loginResponse struct {
	Principal principalView    `json:"principal"`
	Tokens    domain.TokenPair `json:"tokens"`
}

// ServeHTTP godoc
//
//	@Summary		Log in with username/email and password
//	@Description	Authenticates a principal, binds it to a server-side session
//	@Description	(setting the session cookie) and mints an access/refresh token pair.
//	@Description	Principals with a confirmed second factor must supply a TOTP code.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	loginResponse
//	@Failure		401		{object}	map[string]string	"error, error_description"
//	@Failure		409		{object}	map[string]string	"two_factor_required"
//	@Router			/v1/session/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	principal, sess, err := h.Authenticator.Login(w, r, req.Username, req.Password, req.Code)
	switch {
	case errors.Is(err, service.ErrTwoFactorRequired):
		httpx.WriteError(w, http.StatusConflict, "two_factor_required", "a one-time code is required")
		return
	case errors.Is(err, service.ErrInvalidTwoFactorCode),
		errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", service.ErrInvalidCredentials.Error())
		return
	case err != nil:
		log.Error("login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login unavailable")
		return
	}

	pair, err := h.Tokens.Issue(ctx, *principal, sess.ID)
	if err != nil {
		log.Error("token issuance failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Principal: viewPrincipal(*principal),
		Tokens:    pair,
	})
}
