package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

// Dispatcher turns a Router into an http.Handler. It decomposes the
// request URL into path and query parameters, resolves the route,
// invokes the handler, and translates handler failures and misses into
// JSON error envelopes. It is stateless per call and never propagates
// a handler error to the HTTP server.
type Dispatcher struct {
	router *Router
	logger observability.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the dispatcher.
func WithDispatcherLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher over the given router.
func NewDispatcher(r *Router, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		router: r,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// errorEnvelope is the JSON error body shared by all error responses.
type errorEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	rawURL := r.URL.RequestURI()
	path := ParsePath(rawURL)
	queryParams := ParseQuery(rawURL)

	match, err := d.router.Dispatch(method, path)
	if err != nil {
		var notFound *util.RouteNotFoundError
		if errors.As(err, &notFound) {
			getDispatchMetrics().notFound.Inc()
			d.logger.WithContext(r.Context()).Debug("no route matched",
				observability.String("method", notFound.Method),
				observability.String("path", notFound.Path),
			)
			d.writeError(w, http.StatusNotFound,
				"Not Found: "+notFound.Method+" "+notFound.Path)
			return
		}
		d.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	route := match.Route
	getDispatchMetrics().dispatched.WithLabelValues(route.Method(), route.Pattern()).Inc()
	util.RouteHolderFromContext(r.Context()).Set(route.Pattern())

	ctx := util.ContextWithRoute(r.Context(), route.Pattern())
	if len(match.PathParams) > 0 {
		ctx = util.ContextWithPathParams(ctx, match.PathParams)
	}
	r = r.WithContext(ctx)

	rc := &Context{
		Request:     r,
		Path:        path,
		PathParams:  match.PathParams,
		QueryParams: queryParams,
	}

	resp, err := route.Handler()(rc)
	if err != nil {
		getDispatchMetrics().handlerErrors.WithLabelValues(route.Pattern()).Inc()
		d.logger.WithContext(ctx).Error("handler failed",
			observability.String("method", route.Method()),
			observability.String("route", route.Pattern()),
			observability.Error(err),
		)
		d.writeError(w, http.StatusInternalServerError, "Handler error: "+err.Error())
		return
	}

	d.writeResponse(w, resp)
}

// writeResponse writes a handler response verbatim.
func (d *Dispatcher) writeResponse(w http.ResponseWriter, resp *Response) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

// writeError writes a JSON error envelope with the status mirrored in
// the body.
func (d *Dispatcher) writeError(w http.ResponseWriter, status int, message string) {
	body, err := json.Marshal(errorEnvelope{
		Error:   true,
		Message: message,
		Status:  status,
	})
	if err != nil {
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
