package router

import (
	"sort"
	"strings"
	"sync"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

// Router holds the route table. The table is re-sorted by specificity
// after every insertion, so resolution is independent of registration
// order: registering "/bugs/{id}" before "/bugs/search" still routes
// /bugs/search to the literal template. Registration order only breaks
// ties between equal specificity keys.
//
// All registration normally happens at startup, before any dispatch;
// the RWMutex keeps late registration safe anyway.
type Router struct {
	mu     sync.RWMutex
	routes []*Route
}

// Match is the result of a successful dispatch.
type Match struct {
	Route      *Route
	PathParams map[string]string
}

// New creates an empty router.
func New() *Router {
	return &Router{}
}

// AddRoute compiles the template and inserts the route into the table,
// then re-sorts the table by specificity. Fails with *util.PatternError
// for malformed templates.
func (r *Router) AddRoute(method, template string, handler Handler) error {
	route, err := NewRoute(method, template, handler)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	route.index = len(r.routes)
	r.routes = append(r.routes, route)

	sort.SliceStable(r.routes, func(i, j int) bool {
		si, sj := r.routes[i].Specificity(), r.routes[j].Specificity()
		if si.Less(sj) {
			return true
		}
		if sj.Less(si) {
			return false
		}
		return r.routes[i].index < r.routes[j].index
	})

	return nil
}

// Get registers a GET route.
func (r *Router) Get(template string, handler Handler) error {
	return r.AddRoute("GET", template, handler)
}

// Post registers a POST route.
func (r *Router) Post(template string, handler Handler) error {
	return r.AddRoute("POST", template, handler)
}

// Put registers a PUT route.
func (r *Router) Put(template string, handler Handler) error {
	return r.AddRoute("PUT", template, handler)
}

// Delete registers a DELETE route.
func (r *Router) Delete(template string, handler Handler) error {
	return r.AddRoute("DELETE", template, handler)
}

// Dispatch walks the table in specificity order and returns the first
// route matching (method, path). If nothing matches it fails with
// *util.RouteNotFoundError.
func (r *Router) Dispatch(method, path string) (*Match, error) {
	method = strings.ToUpper(method)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.routes {
		if params, ok := route.Matches(method, path); ok {
			return &Match{Route: route, PathParams: params}, nil
		}
	}

	return nil, util.NewRouteNotFoundError(method, path)
}

// Routes returns a snapshot of the route table in match order.
func (r *Router) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)
	return routes
}

// ParsePath extracts the normalized path from a raw URL: any
// scheme+host prefix and the query string are stripped, a leading
// slash is guaranteed, and a trailing slash is removed except for the
// root path.
func ParsePath(rawURL string) string {
	path := rawURL

	// Only strip a scheme+host prefix; a "://" later in the raw URL
	// can belong to a URL-valued query parameter.
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		rest := path[strings.Index(path, "://")+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			path = rest[j:]
		} else {
			path = "/"
		}
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if path != "/" && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	return path
}

// ParseQuery parses the query string of a raw URL into a flat map.
// Pairs without an '=' are dropped silently; for duplicate keys the
// last occurrence wins. Values are passed through without decoding.
func ParseQuery(rawURL string) map[string]string {
	params := make(map[string]string)

	i := strings.IndexByte(rawURL, '?')
	if i < 0 {
		return params
	}

	for _, pair := range strings.Split(rawURL[i+1:], "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		params[k] = v
	}

	return params
}
