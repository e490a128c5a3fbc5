package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"failover-cache/internal/common/logging"
	"failover-cache/internal/handlers"
	"failover-cache/internal/server"
)

// Handler builds the operator API router
func (app *App) Handler() http.Handler {
	// Keep a nil *Sweeper out of the interface
	var sweeper handlers.SweepRunner
	if app.Sweeper != nil {
		sweeper = app.Sweeper
	}

	h := handlers.New(app.Cache, sweeper, logging.GetGlobalLogger())

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Metrics, app.InitializeRateLimiter())
	return router
}

// RunServer creates the HTTP server and starts scheduled sweeping
func (app *App) RunServer() *server.Server {
	srv := server.New(app.Handler(), strconv.Itoa(app.Settings.Port), logging.GetGlobalLogger())

	if app.Sweeper != nil {
		app.Sweeper.Start()
	}
	return srv
}

// StartServer binds srv. When binding fails, everything RunServer started is stopped again.
func (app *App) StartServer(srv *server.Server) error {
	if err := srv.Start(); err != nil {
		if shutdownErr := app.Shutdown(context.Background()); shutdownErr != nil {
			app.Logger.Warn("Error during app shutdown", logging.Field{Key: "error", Value: shutdownErr.Error()})
		}
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	if app.Sweeper != nil {
		if err := app.Sweeper.Stop(ctx); err != nil {
			app.Logger.Warn("Error stopping sweeper", logging.Field{Key: "error", Value: err.Error()})
			return err
		}
		app.Logger.Info("Sweeper stopped")
	}
	return nil
}
