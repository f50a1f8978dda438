package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	var cfgErr *util.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues/7/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"title":"broken link"}`))
	})

	raw, err := c.Get(context.Background(), "/issues/7/", nil)
	require.NoError(t, err)

	var issue struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(raw, &issue))
	assert.Equal(t, 7, issue.ID)
	assert.Equal(t, "broken link", issue.Title)
}

func TestClientGetSendsQueryAndAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/issues/", map[string]string{"status": "open"})
	require.NoError(t, err)
}

func TestClientListEnvelope(t *testing.T) {
	t.Parallel()

	next := "https://platform.example.com/api/issues/?page=2"
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":42,"next":"` + next + `","previous":null,"results":[{"id":1},{"id":2}]}`))
	})

	result, err := c.List(context.Background(), "/issues/", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Count)
	require.NotNil(t, result.Next)
	assert.Equal(t, next, *result.Next)
	assert.Nil(t, result.Previous)

	var items []map[string]int
	require.NoError(t, json.Unmarshal(result.Results, &items))
	assert.Len(t, items, 2)
}

func TestClientListBareArray(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2},{"id":3}]`))
	})

	result, err := c.List(context.Background(), "/contributors/", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)

	var items []map[string]int
	require.NoError(t, json.Unmarshal(result.Results, &items))
	assert.Len(t, items, 3)
}

func TestClientListMalformedBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	})

	_, err := c.List(context.Background(), "/issues/", nil)
	require.Error(t, err)
	var be *util.BackendError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, err.Error(), "malformed list response")
}

func TestClientPost(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "jane", payload["username"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":10}`))
	})

	raw, err := c.Post(context.Background(), "/users/", map[string]string{"username": "jane"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":10}`, string(raw))
}

func TestClientNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), "/issues/999/", nil)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Get(context.Background(), "/issues/", nil)
	require.Error(t, err)
	var be *util.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadGateway, be.Status)
}

func TestClientBreakerOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// Drive the breaker past its failure-rate threshold.
	for i := 0; i < 10; i++ {
		_, _ = c.Get(context.Background(), "/issues/", nil)
	}

	_, err := c.Get(context.Background(), "/issues/", nil)
	assert.ErrorIs(t, err, util.ErrCircuitOpen)
}

func TestClientNotFoundDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, err := c.Get(context.Background(), "/issues/999/", nil)
		assert.ErrorIs(t, err, util.ErrNotFound)
		assert.NotErrorIs(t, err, util.ErrCircuitOpen)
	}
}
