package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"failover-cache/internal/common/cache"
	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/scheduler"
)

// CacheService is the part of *cache.FailoverCache the operator API drives
type CacheService interface {
	Delete(ctx context.Context, key string) bool
	Clear(ctx context.Context)
	ClearMatching(ctx context.Context, substring string) int
	SweepExpired() int
	Stats() cache.Stats
	Inspect(key string) (cache.Entry, bool)
	RemoteAvailable() bool
	ResetRemote(ctx context.Context) error
}

// SweepRunner runs on-demand sweeps and reports scheduled sweep activity
type SweepRunner interface {
	RunNow() int
	Status() scheduler.SweeperStatus
}

type Handlers struct {
	cache   CacheService
	sweeper SweepRunner
	logger  logging.Logger
}

// New creates the operator handlers. sweeper may be nil when scheduled sweeping is disabled.
func New(c CacheService, sweeper SweepRunner, logger logging.Logger) *Handlers {
	return &Handlers{
		cache:   c,
		sweeper: sweeper,
		logger:  logging.OrGlobal(logger).WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps an AppError type onto an HTTP status
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		status = http.StatusBadRequest
	case errors.ErrTypeNotFound:
		status = http.StatusNotFound
	case errors.ErrTypeConfig, errors.ErrTypeRemote:
		status = http.StatusConflict
	}

	response := ErrorResponse{Error: err.Error()}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		response.Error = appErr.Message
		response.Code = appErr.Code
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Operator request failed", err)
	}
	writeJSON(w, status, response)
}
