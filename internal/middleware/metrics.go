package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RequestObserver records finished requests; *metrics.HTTPMetrics satisfies it
type RequestObserver interface {
	Observe(route, method string, status int, elapsed time.Duration)
}

// Metrics reports each request under its mux route template
func Metrics(observer RequestObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}
			observer.Observe(route, r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}
