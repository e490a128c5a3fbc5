package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"failover-cache/internal/common/ratelimit"
	"failover-cache/internal/handlers"
	"failover-cache/internal/metrics"
	"failover-cache/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, registry *metrics.Registry, rateLimiter ratelimit.Limiter) {
	router.Use(middleware.RequestID, middleware.LoggingMiddleware, middleware.Metrics(registry.HTTP))

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", registry.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/cache").Subrouter()

	// Read-only diagnostics
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/entries/{key}", h.GetEntry).Methods(http.MethodGet)

	// Mutating endpoints, rate limited per client
	mutating := api.NewRoute().Subrouter()
	if rateLimiter != nil {
		mutating.Use(ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPKey))
	}
	mutating.HandleFunc("", h.ClearAll).Methods(http.MethodDelete)
	mutating.HandleFunc("/entries/{key}", h.DeleteEntry).Methods(http.MethodDelete)
	mutating.HandleFunc("/invalidate", h.Invalidate).Methods(http.MethodPost)
	mutating.HandleFunc("/sweep", h.Sweep).Methods(http.MethodPost)
	mutating.HandleFunc("/remote/reset", h.ResetRemote).Methods(http.MethodPost)
}
