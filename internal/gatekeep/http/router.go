package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/pkg/httpx"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"

	_ "github.com/corvid-labs/gatekeep/api/gatekeep" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keyring      *tokenx.Keyring
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Authenticator *service.Authenticator
	Tokens        *service.Tokens
	Bootstrap     *service.Bootstrap
}

func NewRouter(keyring *tokenx.Keyring, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keyring:      keyring,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerBootstrap()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
//
//	@title			Gatekeep Session Service API
//	@version		0.1.0
//	@description	Session authentication service: cookie-bound server-side
//	@description	sessions with inactivity timeout, plus EdDSA-signed access
//	@description	tokens and rotating refresh tokens.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	login := &LoginHandler{Authenticator: r.Authenticator, Tokens: r.Tokens}
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(login, httpx.RateLimitByIP(httpx.StrictLimit)))

	logout := &LogoutHandler{Authenticator: r.Authenticator}
	r.Mux.Handle("POST /v1/session/logout", logout)

	refresh := &RefreshHandler{Tokens: r.Tokens}
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(refresh, httpx.RateLimitByIP(httpx.StrictLimit)))

	me := &MeHandler{Authenticator: r.Authenticator, Keyring: r.keyring, Store: r.store}
	r.Mux.Handle("GET /v1/session/me",
		httpx.Chain(me, httpx.RateLimitByIP(httpx.LenientLimit)))
}

func (r *Router) registerBootstrap() {
	h := &BootstrapHandler{Bootstrap: r.Bootstrap}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", &LivezHandler{Version: r.buildVersion, StartTime: r.startTime})
	r.Mux.Handle("GET /readyz", &ReadyzHandler{Store: r.store})
}
