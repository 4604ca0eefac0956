package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// BootstrapHandler serves POST /v1/bootstrap, creating the first
// administrative principal on a fresh install.
type BootstrapHandler struct {
	Bootstrap *service.Bootstrap
}

type bootstrapRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type bootstrapResponse struct {
	ID string `json:"id"`
}

// ServeHTTP godoc
//
//	@Summary		Create the initial admin principal
//	@Description	One-shot setup guarded by the pre-shared bootstrap token.
//	@Description	Fails once any principal exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			request	body		bootstrapRequest	true	"Bootstrap token and admin details"
//	@Success		201		{object}	bootstrapResponse
//	@Failure		403		{object}	map[string]string	"unauthorized"
//	@Failure		409		{object}	map[string]string	"already bootstrapped"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Name == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name and password are required")
		return
	}

	id, err := h.Bootstrap.Create(ctx, req.Token, req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrBootstrapAlready):
		httpx.WriteError(w, http.StatusConflict, "already_bootstrapped", "an initial principal already exists")
		return
	case errors.Is(err, service.ErrBootstrapUnauthorized):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "bootstrap token rejected")
		return
	case err != nil:
		log.Error("bootstrap failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "bootstrap unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, bootstrapResponse{ID: id})
}
