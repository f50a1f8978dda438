package router

import (
	"net/http"
	"strings"
)

// Handler produces a response for a routed request. Handlers run with
// the request's context and must return either a response or an error;
// the dispatcher converts errors into 500 envelopes and never lets them
// escape.
type Handler func(rc *Context) (*Response, error)

// Context carries the routing results handed to a handler for one
// request. It is built fresh per request and discarded after the
// handler returns.
type Context struct {
	Request     *http.Request
	Path        string
	PathParams  map[string]string
	QueryParams map[string]string
}

// Response is the value a handler produces. The dispatcher writes it
// to the wire verbatim.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Route binds an HTTP method and a compiled pattern to a handler.
// Routes are immutable once constructed; construction fails only on
// pattern compilation errors.
type Route struct {
	method  string
	pattern *Pattern
	handler Handler
	index   int
}

// NewRoute compiles the template and constructs an immutable Route.
func NewRoute(method, template string, handler Handler) (*Route, error) {
	pattern, err := CompilePattern(template)
	if err != nil {
		return nil, err
	}
	return &Route{
		method:  strings.ToUpper(method),
		pattern: pattern,
		handler: handler,
	}, nil
}

// Method returns the route's HTTP method, normalized to upper case.
func (r *Route) Method() string {
	return r.method
}

// Pattern returns the route's template text.
func (r *Route) Pattern() string {
	return r.pattern.Template()
}

// Specificity returns the precomputed ordering key.
func (r *Route) Specificity() SpecificityKey {
	return r.pattern.specificity
}

// Handler returns the bound handler.
func (r *Route) Handler() Handler {
	return r.handler
}

// Matches tests the route against a method and normalized path. A hit
// returns the captured parameters (empty but non-nil for zero-capture
// patterns) and true.
func (r *Route) Matches(method, path string) (map[string]string, bool) {
	if !strings.EqualFold(method, r.method) {
		return nil, false
	}
	return r.pattern.Match(path)
}
