package middleware

import (
	"net/http"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

// Metrics records request counts, durations, and in-flight gauges. The
// route label is filled from the request context, which the dispatcher
// populates after matching, so it reflects the route template rather
// than the raw path.
func Metrics(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			m.IncActiveRequests(r.Method)
			defer m.DecActiveRequests(r.Method)

			holder := &util.RouteHolder{}
			r = r.WithContext(util.ContextWithRouteHolder(r.Context(), holder))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			route := holder.Get()
			m.RecordRequest(r.Method, route, status, time.Since(start))
			if status == http.StatusNotFound && route == "" {
				m.RecordRouteNotFound(r.Method)
			}
		})
	}
}
