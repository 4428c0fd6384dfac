// Package app wires the directory server together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/campuslink/campuslink-server/internal/config"
)

// DirectoryApp encapsulates all components needed to run the directory API server.
// It provides lifecycle management and graceful shutdown capabilities.
type DirectoryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// cleanup closes the event publisher, then storage, then telemetry
	cleanup  func(ctx context.Context) error
	stopOnce sync.Once
}

// Start listens on the configured address and serves until Stop is called.
func (app *DirectoryApp) Start() error {
	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Serve accepts connections on listener until Stop is called.
func (app *DirectoryApp) Serve(listener net.Listener) error {
	slog.Info("Server listening", "address", listener.Addr().String())
	if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server with the given timeout, then releases
// every resource the app owns. Calls after the first are no-ops.
func (app *DirectoryApp) Stop(timeout time.Duration) error {
	var err error
	app.stopOnce.Do(func() {
		err = app.stop(timeout)
	})
	return err
}

func (app *DirectoryApp) stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if app.cleanup != nil {
		if err := app.cleanup(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *DirectoryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *DirectoryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired application components
func (app *DirectoryApp) Components() *AppComponents {
	return app.components
}
