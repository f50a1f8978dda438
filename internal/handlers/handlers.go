// Package handlers implements the gateway's HTTP API on top of the
// router: locally stored bugs, proxied platform resources, and account
// operations.
package handlers

import (
	"github.com/owasp-blt/blt-gateway/internal/auth"
	"github.com/owasp-blt/blt-gateway/internal/cache"
	"github.com/owasp-blt/blt-gateway/internal/email"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/router"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/upstream"
)

// Deps bundles the collaborators the handlers need.
type Deps struct {
	Store    store.Store
	Users    store.UserStore
	Upstream *upstream.Client
	Cache    cache.Cache
	Tokens   *auth.TokenIssuer
	Mail     email.Sender
	Logger   observability.Logger

	// VerifyBase is the external base URL used to build email
	// verification links, e.g. "https://gw.example.com".
	VerifyBase string
}

func (d *Deps) logger() observability.Logger {
	if d.Logger == nil {
		return observability.NopLogger()
	}
	return d.Logger
}

// Register wires every API route into the router.
func Register(r *router.Router, deps Deps) error {
	bugs := &BugsHandler{store: deps.Store, logger: deps.logger()}
	proxy := &ProxyHandler{
		upstream: deps.Upstream,
		cache:    deps.Cache,
		store:    deps.Store,
		logger:   deps.logger(),
	}
	accounts := &AuthHandler{
		users:      deps.Users,
		tokens:     deps.Tokens,
		mail:       deps.Mail,
		logger:     deps.logger(),
		verifyBase: deps.VerifyBase,
	}

	registrations := []func(*router.Router) error{
		RegisterHome,
		RegisterHealth,
		bugs.Register,
		proxy.Register,
		accounts.Register,
	}
	for _, register := range registrations {
		if err := register(r); err != nil {
			return err
		}
	}
	return nil
}
