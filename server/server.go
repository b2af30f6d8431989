// Package server wires the fitlink components into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrschumacher/fitlink/internal/auth"
	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/connect"
	"github.com/jrschumacher/fitlink/internal/db"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/oauth"
	"github.com/jrschumacher/fitlink/internal/provider"
	"github.com/jrschumacher/fitlink/internal/repository"
	connections "github.com/jrschumacher/fitlink/server/connections-handlers"
	health "github.com/jrschumacher/fitlink/server/health-handlers"
)

// App is the assembled service.
type App struct {
	Handler     http.Handler
	DB          *db.Service
	Connections repository.ConnectionRepository
	closers     []io.Closer
}

// New opens the database, applies migrations and builds every component
// from cfg. ctx bounds background work such as JWKS refresh.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	providers, err := provider.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	if err := providers.RequireEnabled(); err != nil {
		return nil, err
	}

	verifier, err := auth.NewJWTVerifier(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bearer verifier: %w", err)
	}

	dbService, err := db.NewService(cfg)
	if err != nil {
		return nil, err
	}
	app := &App{DB: dbService, closers: []io.Closer{dbService}}

	if err := dbService.MigrateUp(); err != nil {
		_ = app.Close()
		return nil, err
	}

	states, err := oauth.NewStateCache(ctx, cfg.StateStore, cfg.RedisURL)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("state store: %w", err)
	}
	if c, ok := states.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	app.Connections = repository.NewConnectionRepository(dbService)
	service := connect.NewService(providers, oauth.NewClient(cfg.ProviderTimeout), app.Connections, states, connect.Options{
		AppURL:            cfg.AppURL,
		ErrorPath:         cfg.ErrorPath,
		StateTTL:          cfg.StateTTL,
		ExposeErrorDetail: !cfg.IsProduction(),
	})

	mux := http.NewServeMux()
	health.RegisterRoutes(mux, "", cfg, dbService.DB())
	connections.RegisterRoutes(mux, cfg, service, verifier)
	app.Handler = mux

	logger.Info("Service assembled",
		"providers", providers.Enabled(),
		"stateStore", cfg.StateStore,
		"driver", string(dbService.Driver()))
	return app, nil
}

// Close releases the database and state store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start runs the HTTP server until SIGINT or SIGTERM, then drains in-flight requests.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Shutdown cleanup failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", srv.Addr, "env", cfg.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
