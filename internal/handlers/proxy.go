package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/api"
	"github.com/owasp-blt/blt-gateway/internal/cache"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/router"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/upstream"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

// proxyCacheTTL bounds staleness of proxied reads served from cache.
const proxyCacheTTL = 30 * time.Second

// ProxyHandler serves resources fetched from the platform API.
type ProxyHandler struct {
	upstream *upstream.Client
	cache    cache.Cache
	store    store.Store
	logger   observability.Logger
}

// Register wires the proxied resource routes.
func (h *ProxyHandler) Register(r *router.Router) error {
	type route struct {
		method  string
		pattern string
		handler router.Handler
	}

	routes := []route{
		{http.MethodGet, "/issues", h.list("/issues/", "status", "domain", "search")},
		{http.MethodGet, "/issues/search", h.searchIssues},
		{http.MethodGet, "/issues/{id}", h.get("/issues/%s/")},
		{http.MethodPost, "/issues", h.createIssue},

		{http.MethodGet, "/users", h.list("/users/")},
		{http.MethodGet, "/users/{id}", h.get("/users/%s/")},
		{http.MethodGet, "/users/{id}/profile", h.get("/profile/%s/")},

		{http.MethodGet, "/domains", h.list("/domains/")},
		{http.MethodGet, "/domains/{id}", h.get("/domains/%s/")},
		{http.MethodGet, "/domains/{id}/tags", h.domainTags},
		{http.MethodGet, "/domains/{id}/issues", h.domainIssues},

		{http.MethodGet, "/organizations", h.list("/organizations/")},
		{http.MethodGet, "/organizations/{id}", h.get("/organizations/%s/")},
		{http.MethodGet, "/organizations/{id}/repos", h.sublist("/organizations/%s/repos/")},
		{http.MethodGet, "/organizations/{id}/projects", h.sublist("/organizations/%s/projects/")},

		{http.MethodGet, "/projects", h.list("/projects/")},
		{http.MethodGet, "/projects/{id}", h.get("/projects/%s/")},
		{http.MethodGet, "/projects/{id}/contributors", h.sublist("/projects/%s/contributors/")},

		{http.MethodGet, "/hunts", h.list("/hunts/")},
		{http.MethodGet, "/hunts/active", h.huntsFiltered("activeHunt")},
		{http.MethodGet, "/hunts/previous", h.huntsFiltered("previousHunt")},
		{http.MethodGet, "/hunts/upcoming", h.huntsFiltered("upcomingHunt")},
		{http.MethodGet, "/hunts/{id}", h.get("/hunts/%s/")},

		{http.MethodGet, "/stats", h.stats},

		{http.MethodGet, "/leaderboard", h.list("/leaderboard/")},
		{http.MethodGet, "/leaderboard/monthly", h.list("/leaderboard/monthly/", "month", "year")},
		{http.MethodGet, "/leaderboard/organizations", h.list("/leaderboard/organizations/")},

		{http.MethodGet, "/contributors", h.list("/contributors/")},
		{http.MethodGet, "/contributors/{id}", h.get("/contributors/%s/")},

		{http.MethodGet, "/repos", h.list("/repos/")},
		{http.MethodGet, "/repos/{id}", h.get("/repos/%s/")},
	}

	for _, rt := range routes {
		if err := r.AddRoute(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// list builds a handler proxying a collection, forwarding only the
// whitelisted filter parameters.
func (h *ProxyHandler) list(upstreamPath string, passthrough ...string) router.Handler {
	return func(rc *router.Context) (*router.Response, error) {
		page := api.ParsePagination(rc.QueryParams)

		query := map[string]string{
			"page":      strconv.Itoa(page.Page),
			"page_size": strconv.Itoa(page.PerPage),
		}
		for _, name := range passthrough {
			if v, ok := rc.QueryParams[name]; ok && v != "" {
				query[name] = v
			}
		}

		return h.cachedList(rc, upstreamPath, query, page)
	}
}

// sublist builds a handler proxying a nested collection under a
// numeric parent id.
func (h *ProxyHandler) sublist(pathFormat string) router.Handler {
	return func(rc *router.Context) (*router.Response, error) {
		id, ok := numericParam(rc, "id")
		if !ok {
			return api.BadRequest("id must be numeric")
		}
		page := api.ParsePagination(rc.QueryParams)
		query := map[string]string{
			"page":      strconv.Itoa(page.Page),
			"page_size": strconv.Itoa(page.PerPage),
		}
		return h.cachedList(rc, sprintfPath(pathFormat, id), query, page)
	}
}

// get builds a handler proxying a single resource by numeric id.
func (h *ProxyHandler) get(pathFormat string) router.Handler {
	return func(rc *router.Context) (*router.Response, error) {
		id, ok := numericParam(rc, "id")
		if !ok {
			return api.BadRequest("id must be numeric")
		}
		return h.cachedGet(rc, sprintfPath(pathFormat, id), nil)
	}
}

// huntsFiltered proxies the hunts listing with an upstream state flag.
func (h *ProxyHandler) huntsFiltered(flag string) router.Handler {
	return func(rc *router.Context) (*router.Response, error) {
		page := api.ParsePagination(rc.QueryParams)
		query := map[string]string{
			"page":      strconv.Itoa(page.Page),
			"page_size": strconv.Itoa(page.PerPage),
			flag:        "true",
		}
		return h.cachedList(rc, "/hunts/", query, page)
	}
}

// stats serves GET /stats.
func (h *ProxyHandler) stats(rc *router.Context) (*router.Response, error) {
	return h.cachedGet(rc, "/stats/", nil)
}

// searchIssues serves GET /issues/search.
func (h *ProxyHandler) searchIssues(rc *router.Context) (*router.Response, error) {
	q := rc.QueryParams["q"]
	if q == "" {
		return api.BadRequest("q is required")
	}
	page := api.ParsePagination(rc.QueryParams)
	query := map[string]string{
		"search":    q,
		"page":      strconv.Itoa(page.Page),
		"page_size": strconv.Itoa(page.PerPage),
	}
	return h.cachedList(rc, "/issues/", query, page)
}

// createIssueRequest is the POST /issues payload.
type createIssueRequest struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	Label       string `json:"label"`
}

// createIssue serves POST /issues by writing through to the platform.
func (h *ProxyHandler) createIssue(rc *router.Context) (*router.Response, error) {
	var req createIssueRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}
	if req.URL == "" || req.Description == "" {
		return api.BadRequest("url and description are required")
	}

	raw, err := h.upstream.Post(rc.Request.Context(), "/issues/", req)
	if err != nil {
		return h.upstreamError(rc, err)
	}
	return api.Created(json.RawMessage(raw))
}

// domainTags serves GET /domains/{id}/tags from the local store.
func (h *ProxyHandler) domainTags(rc *router.Context) (*router.Response, error) {
	id, ok := numericParam(rc, "id")
	if !ok {
		return api.BadRequest("id must be numeric")
	}
	domainID, _ := strconv.ParseInt(id, 10, 64)

	tags, err := h.store.ListDomainTags(rc.Request.Context(), domainID)
	if err != nil {
		return nil, err
	}
	return api.OK(tags)
}

// domainIssues serves GET /domains/{id}/issues, proxying the issue
// listing filtered to the domain.
func (h *ProxyHandler) domainIssues(rc *router.Context) (*router.Response, error) {
	id, ok := numericParam(rc, "id")
	if !ok {
		return api.BadRequest("id must be numeric")
	}
	page := api.ParsePagination(rc.QueryParams)
	query := map[string]string{
		"domain":    id,
		"page":      strconv.Itoa(page.Page),
		"page_size": strconv.Itoa(page.PerPage),
	}
	return h.cachedList(rc, "/issues/", query, page)
}

// cachedList proxies a collection read through the cache.
func (h *ProxyHandler) cachedList(rc *router.Context, path string, query map[string]string, page api.Pagination) (*router.Response, error) {
	ctx := rc.Request.Context()
	key := cache.RequestKey(http.MethodGet, path, query)

	if body, ok := h.cacheGet(ctx, key); ok {
		return jsonResponse(body), nil
	}

	result, err := h.upstream.List(ctx, path, query)
	if err != nil {
		return h.upstreamError(rc, err)
	}

	data := result.Results
	if data == nil {
		data = json.RawMessage("[]")
	}
	resp, err := api.Paginated(data, api.NewPageInfo(page.Page, page.PerPage, result.Count))
	if err != nil {
		return nil, err
	}

	h.cacheSet(ctx, key, resp.Body)
	return resp, nil
}

// cachedGet proxies a single-resource read through the cache.
func (h *ProxyHandler) cachedGet(rc *router.Context, path string, query map[string]string) (*router.Response, error) {
	ctx := rc.Request.Context()
	key := cache.RequestKey(http.MethodGet, path, query)

	if body, ok := h.cacheGet(ctx, key); ok {
		return jsonResponse(body), nil
	}

	raw, err := h.upstream.Get(ctx, path, query)
	if err != nil {
		return h.upstreamError(rc, err)
	}

	resp, err := api.OK(json.RawMessage(raw))
	if err != nil {
		return nil, err
	}

	h.cacheSet(ctx, key, resp.Body)
	return resp, nil
}

func (h *ProxyHandler) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, err := h.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return body, true
}

func (h *ProxyHandler) cacheSet(ctx context.Context, key string, body []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, body, proxyCacheTTL); err != nil &&
		!errors.Is(err, cache.ErrCacheDisabled) {
		h.logger.WithContext(ctx).Warn("cache write failed",
			observability.String("key", key),
			observability.Error(err))
	}
}

// upstreamError maps upstream failures onto API error responses.
func (h *ProxyHandler) upstreamError(rc *router.Context, err error) (*router.Response, error) {
	ctx := rc.Request.Context()

	switch {
	case errors.Is(err, util.ErrNotFound):
		return api.NotFound("resource not found")
	case errors.Is(err, util.ErrCircuitOpen):
		h.logger.WithContext(ctx).Warn("upstream circuit open",
			observability.String("path", rc.Path))
		return api.Error(http.StatusServiceUnavailable, "upstream temporarily unavailable")
	}

	var be *util.BackendError
	if errors.As(err, &be) {
		h.logger.WithContext(ctx).Error("upstream request failed",
			observability.String("path", rc.Path),
			observability.Int("upstream_status", be.Status),
			observability.Error(err))
		if be.Status >= 400 && be.Status <= 599 {
			return api.Error(be.Status, "upstream error")
		}
		return api.BadGateway("upstream error")
	}
	return nil, err
}

func numericParam(rc *router.Context, name string) (string, bool) {
	raw := rc.PathParams[name]
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return "", false
	}
	return raw, true
}

func sprintfPath(format, id string) string {
	return fmt.Sprintf(format, id)
}

func jsonResponse(body []byte) *router.Response {
	return &router.Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        body,
	}
}
