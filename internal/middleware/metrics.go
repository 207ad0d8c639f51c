package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inventory-service/internal/metrics"
)

// Metrics records request count, latency and in-flight requests.
//
// Requests are labelled with the chi route pattern ("/order/{id}"), which is
// only known once routing has happened, so it is read after next returns.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := metrics.RequestStarted()
		defer done()

		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		metrics.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
	})
}
