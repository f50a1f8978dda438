package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/owasp-blt/blt-gateway/internal/observability"
)

const limiterIdleTimeout = 10 * time.Minute

// RateLimitConfig tunes the per-client token bucket.
type RateLimitConfig struct {
	Rate  float64
	Burst int
}

// clientLimiter pairs a limiter with its last use for eviction.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	cfg     RateLimitConfig
	metrics *observability.Metrics

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a per-IP rate limiter.
func NewRateLimiter(cfg RateLimitConfig, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		metrics: metrics,
		clients: make(map[string]*clientLimiter),
	}
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			if !rl.allow(client) {
				if rl.metrics != nil {
					rl.metrics.RecordRateLimitHit(client)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				body, _ := json.Marshal(map[string]interface{}{
					"error":   true,
					"message": "Too Many Requests",
					"status":  http.StatusTooManyRequests,
				})
				_, _ = w.Write(body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.Rate), rl.cfg.Burst),
		}
		rl.clients[client] = cl
	}
	cl.lastSeen = now

	// Opportunistic eviction of idle clients.
	if len(rl.clients) > 1 {
		for ip, c := range rl.clients {
			if now.Sub(c.lastSeen) > limiterIdleTimeout {
				delete(rl.clients, ip)
			}
		}
	}

	return cl.limiter.Allow()
}

// clientIP extracts the client address, preferring X-Forwarded-For set
// by the edge.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
