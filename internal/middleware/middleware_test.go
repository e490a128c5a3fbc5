package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"failover-cache/internal/common/logging"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		id := rec.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "upstream-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-123", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "upstream-123", seen)
	})

	t.Run("oversized header replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggingMiddleware(t *testing.T) {
	var out lockedBuffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Format: logging.FormatJSON, Output: &out})
	require.NoError(t, err)

	previous := logging.GetGlobalLogger()
	logging.SetGlobalLogger(logger)
	t.Cleanup(func() { logging.SetGlobalLogger(previous) })

	handler := RequestID(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/cache/sweep?dry=1", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	logged := out.String()
	assert.Contains(t, logged, `"level":"WARN"`)
	assert.Contains(t, logged, `"request_id":"req-42"`)
	assert.Contains(t, logged, `"status":429`)
	assert.Contains(t, logged, `"path":"/api/cache/sweep"`)
	assert.Contains(t, logged, `"query":"dry=1"`)
}

type recordedObservation struct {
	route  string
	method string
	status int
}

type fakeObserver struct {
	mu           sync.Mutex
	observations []recordedObservation
}

func (f *fakeObserver) Observe(route, method string, status int, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, recordedObservation{route, method, status})
}

func TestMetrics(t *testing.T) {
	observer := &fakeObserver{}
	router := mux.NewRouter()
	router.Use(Metrics(observer))
	router.HandleFunc("/api/cache/entries/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/entries/user:1", nil))

	require.Len(t, observer.observations, 1)
	assert.Equal(t, recordedObservation{"/api/cache/entries/{key}", http.MethodGet, http.StatusNotFound}, observer.observations[0])
}
