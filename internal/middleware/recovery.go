package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/owasp-blt/blt-gateway/internal/observability"
)

// Recovery converts handler panics into 500 responses instead of
// tearing down the connection.
func Recovery(logger observability.Logger) Middleware {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).Error("panic recovered",
						observability.Any("panic", rec),
						observability.String("path", r.URL.Path),
						observability.String("stack", string(debug.Stack())),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					body, _ := json.Marshal(map[string]interface{}{
						"error":   true,
						"message": "Internal Server Error",
						"status":  http.StatusInternalServerError,
					})
					_, _ = w.Write(body)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
