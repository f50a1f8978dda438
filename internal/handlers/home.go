package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/owasp-blt/blt-gateway/internal/router"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>BLT Gateway</title></head>
<body>
<h1>BLT Gateway</h1>
<p>Edge REST API for the bug tracking platform.</p>
<ul>
{{range .Sections}}<li><strong>{{.Name}}</strong>: {{range .Paths}}<code>{{.}}</code> {{end}}</li>
{{end}}</ul>
</body>
</html>
`))

type homeSection struct {
	Name  string
	Paths []string
}

var homeSections = []homeSection{
	{Name: "Bugs", Paths: []string{"/bugs", "/bugs/search", "/bugs/{id}"}},
	{Name: "Issues", Paths: []string{"/issues", "/issues/search", "/issues/{id}"}},
	{Name: "Users", Paths: []string{"/users", "/users/{id}"}},
	{Name: "Domains", Paths: []string{"/domains", "/domains/{id}", "/domains/{id}/tags"}},
	{Name: "Organizations", Paths: []string{"/organizations", "/organizations/{id}"}},
	{Name: "Projects", Paths: []string{"/projects", "/projects/{id}"}},
	{Name: "Hunts", Paths: []string{"/hunts", "/hunts/active", "/hunts/{id}"}},
	{Name: "Community", Paths: []string{"/stats", "/leaderboard", "/contributors", "/repos"}},
	{Name: "Auth", Paths: []string{"/auth/signup", "/auth/signin", "/auth/verify-email"}},
}

// RegisterHome wires GET /, an HTML index of the API.
func RegisterHome(r *router.Router) error {
	return r.Get("/", func(*router.Context) (*router.Response, error) {
		var buf bytes.Buffer
		if err := homeTemplate.Execute(&buf, map[string]interface{}{"Sections": homeSections}); err != nil {
			return nil, err
		}
		return &router.Response{
			StatusCode:  http.StatusOK,
			ContentType: "text/html; charset=utf-8",
			Body:        buf.Bytes(),
		}, nil
	})
}
