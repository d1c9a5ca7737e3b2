package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chris/escrow-transfers/pkg/metrics"
	"github.com/go-chi/chi/v5/middleware"
)

// Metrics records request latency labeled by route pattern rather than raw path.
func Metrics(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, routePattern(r), strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	}
	return http.HandlerFunc(fn)
}
