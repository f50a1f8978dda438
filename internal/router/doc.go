// Package router implements request routing for the gateway.
//
// Routes are registered as path templates containing literal segments
// and named capture slots ("/bugs/{id}"). Each template is compiled
// once at registration time into an ordered list of segments plus a
// specificity key, and the route table is kept sorted by that key so
// that concrete templates always win over parameterized ones no matter
// the registration order ("/bugs/search" beats "/bugs/{id}" for the
// path /bugs/search).
//
// # Usage
//
// Create a router, register routes, and dispatch:
//
//	r := router.New()
//	if err := r.Get("/bugs/{id}", bugHandler); err != nil {
//	    log.Fatal(err)
//	}
//
//	match, err := r.Dispatch("GET", "/bugs/42")
//	if err == nil {
//	    // match.Route and match.PathParams describe the hit
//	}
//
// The Dispatcher type wraps a Router into an http.Handler that parses
// the request URL, invokes the matched handler, and converts handler
// errors and misses into JSON error envelopes.
package router
