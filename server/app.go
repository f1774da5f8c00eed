package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"rightsnet/app/auth"
	"rightsnet/app/config"
	"rightsnet/app/repositories"
	"rightsnet/app/routes"

	"github.com/google/uuid"
)

// App is a fully wired rightsnet instance.
type App struct {
	Config  *config.Config
	Store   *repositories.Store
	Deps    *routes.Deps
	Handler http.Handler
	Logger  *slog.Logger
}

// Build opens the store and wires repositories, services, the realtime hub
// and the router.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// in-memory only; tokens die with the process anyway
		secret = uuid.NewString()
		logger.Warn("no jwt secret configured, using an ephemeral one")
	}

	deps := routes.NewDeps(store, routes.Options{
		Tokens:         auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL),
		BcryptCost:     cfg.Auth.BcryptCost,
		BufferSize:     cfg.Realtime.BufferSize,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		Logger:         logger,
	})

	return &App{
		Config:  cfg,
		Store:   store,
		Deps:    deps,
		Handler: routes.SetupRoutes(deps),
		Logger:  logger,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.Handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("rightsnet listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down", "timeout", a.Config.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// RunAppServer builds the application and serves it on the configured
// address until ctx is cancelled.
func RunAppServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	return app.Serve(ctx, ln)
}
