package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/corvid-labs/gatekeep/internal/gatekeep/http"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the session service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keyring *tokenx.Keyring

	// Services
	lookup        *service.Lookup
	sessions      *service.Sessions
	notifier      *service.HookNotifier
	authenticator *service.Authenticator
	tokens        *service.Tokens
	bootstrap     *service.Bootstrap
	housekeeping  *service.Housekeeping

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeep",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyring, err := tokenx.NewKeyring(cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyring = keyring

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("gatekeep starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeep...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeep stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.lookup = &service.Lookup{
		Store: app.db,
		Superuser: service.SuperuserConfig{
			Name:     app.cfg.SuperuserName,
			Password: app.cfg.SuperuserPassword,
		},
	}

	app.sessions = &service.Sessions{
		Store:   app.db,
		Timeout: app.cfg.SessionTimeout,
		Secure:  app.cfg.SecureCookies,
	}

	app.notifier = service.NewHookNotifier()

	app.authenticator = &service.Authenticator{
		Store:    app.db,
		Lookup:   app.lookup,
		Sessions: app.sessions,
		Notifier: app.notifier,
	}

	app.tokens = &service.Tokens{
		Store:      app.db,
		Keyring:    app.keyring,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.bootstrap = &service.Bootstrap{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}

	app.housekeeping = service.NewHousekeeping(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionTimeout,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keyring, BuildVersion, app.db, app.logger)

	router.Authenticator = app.authenticator
	router.Tokens = app.tokens
	router.Bootstrap = app.bootstrap
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
