package router

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

// namedHandler builds a handler that reports its own name, so tests
// can tell which route won a dispatch.
func namedHandler(name string) Handler {
	return func(_ *Context) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, Body: []byte(name)}, nil
	}
}

func handlerName(t *testing.T, m *Match) string {
	t.Helper()
	resp, err := m.Route.Handler()(&Context{})
	require.NoError(t, err)
	return string(resp.Body)
}

func TestRouterExactLiteralMatch(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/health", namedHandler("health")))

	match, err := r.Dispatch("GET", "/health")
	require.NoError(t, err)
	assert.Equal(t, "health", handlerName(t, match))
	assert.NotNil(t, match.PathParams)
	assert.Empty(t, match.PathParams)

	_, err = r.Dispatch("POST", "/health")
	require.Error(t, err)
	var notFound *util.RouteNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "POST", notFound.Method)
	assert.Equal(t, "/health", notFound.Path)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRouterSingleCapture(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/users/{id}", namedHandler("user")))

	match, err := r.Dispatch("GET", "/users/42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "42"}, match.PathParams)

	_, err = r.Dispatch("GET", "/users/42/extra")
	assert.Error(t, err)
}

func TestRouterMultiCapture(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/users/{user_id}/posts/{post_id}", namedHandler("post")))

	match, err := r.Dispatch("GET", "/users/7/posts/99")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user_id": "7", "post_id": "99"}, match.PathParams)
}

func TestRouterSpecificityPrecedence(t *testing.T) {
	t.Parallel()

	// The literal route must win for /bugs/search in both registration
	// orders; a parameterized template must never shadow it.
	orders := []struct {
		name  string
		first [2]string
	}{
		{name: "generic registered first", first: [2]string{"/bugs/{id}", "/bugs/search"}},
		{name: "specific registered first", first: [2]string{"/bugs/search", "/bugs/{id}"}},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New()
			for _, template := range tt.first {
				require.NoError(t, r.Get(template, namedHandler(template)))
			}

			match, err := r.Dispatch("GET", "/bugs/search")
			require.NoError(t, err)
			assert.Equal(t, "/bugs/search", match.Route.Pattern())
			assert.Empty(t, match.PathParams)

			match, err = r.Dispatch("GET", "/bugs/123")
			require.NoError(t, err)
			assert.Equal(t, "/bugs/{id}", match.Route.Pattern())
			assert.Equal(t, map[string]string{"id": "123"}, match.PathParams)
		})
	}
}

func TestRouterScenarioBugsTable(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/bugs/{id}", namedHandler("A")))
	require.NoError(t, r.Get("/bugs/search", namedHandler("B")))
	require.NoError(t, r.Get("/bugs", namedHandler("C")))

	match, err := r.Dispatch("GET", "/bugs")
	require.NoError(t, err)
	assert.Equal(t, "C", handlerName(t, match))

	match, err = r.Dispatch("GET", "/bugs/search")
	require.NoError(t, err)
	assert.Equal(t, "B", handlerName(t, match))

	match, err = r.Dispatch("GET", "/bugs/123")
	require.NoError(t, err)
	assert.Equal(t, "A", handlerName(t, match))
	assert.Equal(t, map[string]string{"id": "123"}, match.PathParams)

	_, err = r.Dispatch("GET", "/bugs/search/x")
	assert.Error(t, err)
}

func TestRouterDuplicateRegistrationDeterministic(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/dup", namedHandler("first")))
	require.NoError(t, r.Get("/dup", namedHandler("second")))

	// Equal specificity keys fall back to registration order, so the
	// first registration wins on every dispatch.
	for i := 0; i < 5; i++ {
		match, err := r.Dispatch("GET", "/dup")
		require.NoError(t, err)
		assert.Equal(t, "first", handlerName(t, match))
	}
}

func TestRouterMethodNormalization(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.AddRoute("get", "/bugs", namedHandler("bugs")))

	match, err := r.Dispatch("GET", "/bugs")
	require.NoError(t, err)
	assert.Equal(t, "GET", match.Route.Method())

	_, err = r.Dispatch("get", "/bugs")
	require.NoError(t, err)
}

func TestRouterRejectsMalformedTemplate(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Get("/bugs/{id", namedHandler("broken"))
	require.Error(t, err)
	var patternErr *util.PatternError
	assert.ErrorAs(t, err, &patternErr)
}

func TestRouterRoutesSnapshotOrder(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Get("/bugs/{id}", namedHandler("A")))
	require.NoError(t, r.Get("/bugs/search", namedHandler("B")))
	require.NoError(t, r.Get("/bugs", namedHandler("C")))

	var patterns []string
	for _, route := range r.Routes() {
		patterns = append(patterns, route.Pattern())
	}

	// Zero-param routes first (more literal chars winning inside the
	// group), parameterized last.
	assert.Equal(t, []string{"/bugs/search", "/bugs", "/bugs/{id}"}, patterns)
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain path", raw: "/users", want: "/users"},
		{name: "trailing slash stripped", raw: "/users/", want: "/users"},
		{name: "root stays root", raw: "/", want: "/"},
		{name: "query stripped", raw: "/users?page=1", want: "/users"},
		{name: "query and trailing slash", raw: "/users/?page=1", want: "/users"},
		{name: "full url", raw: "https://example.com/users", want: "/users"},
		{name: "full url with query", raw: "https://example.com/users?page=1", want: "/users"},
		{name: "full url bare host", raw: "https://example.com", want: "/"},
		{name: "missing leading slash", raw: "users", want: "/users"},
		{name: "url-valued query param", raw: "/redirect?url=https://example.com/x", want: "/redirect"},
		{name: "url-valued query param on full url", raw: "https://gw.example.com/bugs/search?q=https://victim.example/page", want: "/bugs/search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParsePath(tt.raw))
		})
	}
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "two params",
			raw:  "/issues?page=1&per_page=2",
			want: map[string]string{"page": "1", "per_page": "2"},
		},
		{
			name: "no query",
			raw:  "/issues",
			want: map[string]string{},
		},
		{
			name: "duplicate key last wins",
			raw:  "/issues?page=1&page=2",
			want: map[string]string{"page": "2"},
		},
		{
			name: "malformed pairs dropped",
			raw:  "/issues?page=1&broken&=x&",
			want: map[string]string{"page": "1"},
		},
		{
			name: "empty value kept",
			raw:  "/issues?q=",
			want: map[string]string{"q": ""},
		},
		{
			name: "value passed through verbatim",
			raw:  "/issues?q=a%20b=c",
			want: map[string]string{"q": "a%20b=c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseQuery(tt.raw))
		})
	}
}
