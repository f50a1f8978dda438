package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/auth"
	"github.com/owasp-blt/blt-gateway/internal/config"
	"github.com/owasp-blt/blt-gateway/internal/handlers"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/upstream"
)

func newTestServer(t *testing.T, mutate func(*config.GatewayConfig)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	up, err := upstream.NewClient(upstream.Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", "blt-gateway")
	require.NoError(t, err)

	srv, err := New(cfg, handlers.Deps{
		Store:    store.NewMemoryStore(),
		Users:    store.NewMemoryUserStore(),
		Upstream: up,
		Tokens:   tokens,
	}, nil)
	require.NoError(t, err)
	return srv
}

func TestServerServesRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerNotFoundEnvelope(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found: GET /nope")
}

func TestServerAnswersPreflightBeforeRouting(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	// Preflight succeeds even for a path no route matches.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/anything/at/all", nil)
	req.Header.Set("Origin", "https://app.example.com")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerRateLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(cfg *config.GatewayConfig) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Rate = 1
		cfg.RateLimit.Burst = 1
	})

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.RemoteAddr = "10.1.2.3:1000"
		return r
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
