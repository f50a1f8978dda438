package handlers

import (
	"github.com/owasp-blt/blt-gateway/internal/api"
	"github.com/owasp-blt/blt-gateway/internal/router"
)

// healthDocument is the static GET /health body.
type healthDocument struct {
	Status    string   `json:"status"`
	Service   string   `json:"service"`
	Endpoints []string `json:"endpoints"`
}

// RegisterHealth wires GET /health.
func RegisterHealth(r *router.Router) error {
	return r.Get("/health", func(*router.Context) (*router.Response, error) {
		return api.OK(healthDocument{
			Status:  "ok",
			Service: "blt-gateway",
			Endpoints: []string{
				"/bugs", "/bugs/search", "/bugs/{id}",
				"/issues", "/issues/search", "/issues/{id}",
				"/users", "/users/{id}",
				"/domains", "/domains/{id}",
				"/organizations", "/organizations/{id}",
				"/projects", "/projects/{id}",
				"/hunts", "/hunts/{id}",
				"/stats", "/leaderboard", "/contributors", "/repos",
				"/auth/signup", "/auth/signin", "/auth/verify-email",
			},
		})
	})
}
