package http

import (
	"net/http"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
)

// LivezHandler serves GET /livez.
type LivezHandler struct {
	Version   string
	StartTime time.Time
}

type livezResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ServeHTTP godoc
//
//	@Summary	Liveness probe
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	livezResponse
//	@Router		/livez [get].
func (h *LivezHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, livezResponse{
		Status:  "ok",
		Version: h.Version,
		Uptime:  time.Since(h.StartTime).Truncate(time.Second).String(),
	})
}

// ReadyzHandler serves GET /readyz, reporting whether the store is
// reachable.
type ReadyzHandler struct {
	Store store.Store
}

// ServeHTTP godoc
//
//	@Summary	Readiness probe
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/readyz [get].
func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
