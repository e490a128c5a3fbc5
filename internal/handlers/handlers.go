package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"failover-cache/internal/common/cache"
	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/common/validation"
	"failover-cache/internal/scheduler"
)

// maxBodyBytes bounds operator request bodies
const maxBodyBytes = 1 << 16

// HealthResponse reports liveness and which tier serves traffic
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	RemoteConfigured bool      `json:"remote_configured"`
	RemoteAvailable  bool      `json:"remote_available"`
	Mode             string    `json:"mode"`
}

// StatsResponse wraps cache statistics with sweep activity
type StatsResponse struct {
	Cache   cache.Stats              `json:"cache"`
	Sweeper *scheduler.SweeperStatus `json:"sweeper,omitempty"`
}

// EntryResponse describes one local entry for diagnostics
type EntryResponse struct {
	Key        string      `json:"key"`
	Value      interface{} `json:"value"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	TTLSeconds float64     `json:"ttl_seconds"`
	Expired    bool        `json:"expired"`
}

// InvalidateRequest selects keys by substring
type InvalidateRequest struct {
	Match string `json:"match" validate:"required"`
}

// HealthCheck returns the health status of the service
// @Summary Health check
// @Description Returns liveness and whether the remote tier is in use
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()

	mode := "local_only"
	if stats.RemoteAvailable {
		mode = "remote_preferred"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Timestamp:        time.Now().UTC(),
		RemoteConfigured: stats.RemoteConfigured,
		RemoteAvailable:  stats.RemoteAvailable,
		Mode:             mode,
	})
}

// GetStats returns cache statistics
// @Summary Get cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /api/cache/stats [get]
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{Cache: h.cache.Stats()}
	if h.sweeper != nil {
		status := h.sweeper.Status()
		response.Sweeper = &status
	}
	writeJSON(w, http.StatusOK, response)
}

// GetEntry returns the local entry for a key without touching recency or counters
// @Summary Inspect a cache entry
// @Tags cache
// @Produce json
// @Param key path string true "Cache key"
// @Success 200 {object} EntryResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cache/entries/{key} [get]
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, found := h.cache.Inspect(key)
	if !found {
		h.writeError(w, r, errors.NotFoundError("entry").WithContext("key", key))
		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{
		Key:        key,
		Value:      entry.Value,
		CreatedAt:  entry.CreatedAt,
		ExpiresAt:  entry.ExpiresAt,
		TTLSeconds: entry.TTL.Seconds(),
		Expired:    entry.ExpiredAt(time.Now()),
	})
}

// DeleteEntry removes a key from both tiers
// @Summary Delete a cache entry
// @Tags cache
// @Produce json
// @Param key path string true "Cache key"
// @Success 200 {object} map[string]bool
// @Router /api/cache/entries/{key} [delete]
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted := h.cache.Delete(r.Context(), key)
	h.logger.WithContext(r.Context()).Info("Cache entry deleted by operator",
		logging.String("key", key),
		logging.Bool("was_present", deleted),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// Invalidate removes every key containing the given substring
// @Summary Invalidate keys by substring
// @Tags cache
// @Accept json
// @Produce json
// @Param request body InvalidateRequest true "Substring to match"
// @Success 200 {object} map[string]int
// @Failure 400 {object} ErrorResponse
// @Router /api/cache/invalidate [post]
func (h *Handlers) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, errors.ValidationError("request body must be JSON like {\"match\": \"user:\"}"))
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	removed := h.cache.ClearMatching(r.Context(), req.Match)
	h.logger.WithContext(r.Context()).Info("Cache invalidated by operator",
		logging.String("match", req.Match),
		logging.Int("removed", removed),
	)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Sweep removes expired local entries now
// @Summary Sweep expired entries
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/cache/sweep [post]
func (h *Handlers) Sweep(w http.ResponseWriter, r *http.Request) {
	var removed int
	if h.sweeper != nil {
		removed = h.sweeper.RunNow()
	} else {
		removed = h.cache.SweepExpired()
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ClearAll empties both tiers
// @Summary Clear the cache
// @Tags cache
// @Success 204
// @Router /api/cache [delete]
func (h *Handlers) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	h.logger.WithContext(r.Context()).Warn("Cache cleared by operator")
	w.WriteHeader(http.StatusNoContent)
}

// ResetRemote routes traffic back to the remote tier after a failover
// @Summary Re-enable the remote tier
// @Tags cache
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 409 {object} ErrorResponse "No remote configured or remote unhealthy"
// @Router /api/cache/remote/reset [post]
func (h *Handlers) ResetRemote(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ResetRemote(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.HealthCheck(w, r)
}

func keyFromPath(r *http.Request) (string, error) {
	key := mux.Vars(r)["key"]
	if err := validation.ValidateVar(key, "cache_key"); err != nil {
		return "", errors.ValidationError("key must be 1-512 printable characters")
	}
	return key, nil
}
