package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/owasp-blt/blt-gateway/internal/api"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/router"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

const (
	maxBugURLLength    = 200
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// BugsHandler serves bug reports from the local store.
type BugsHandler struct {
	store  store.Store
	logger observability.Logger
}

// Register wires the bug routes.
func (h *BugsHandler) Register(r *router.Router) error {
	if err := r.Get("/bugs", h.List); err != nil {
		return err
	}
	if err := r.Get("/bugs/search", h.Search); err != nil {
		return err
	}
	if err := r.Get("/bugs/{id}", h.Get); err != nil {
		return err
	}
	if err := r.Post("/bugs", h.Create); err != nil {
		return err
	}
	if err := r.Post("/bugs/{id}/screenshots", h.AddScreenshot); err != nil {
		return err
	}
	return r.Post("/bugs/{id}/tags", h.AddTag)
}

// List serves GET /bugs.
func (h *BugsHandler) List(rc *router.Context) (*router.Response, error) {
	page := api.ParsePagination(rc.QueryParams)

	filter := store.BugFilter{
		Status: rc.QueryParams["status"],
		Label:  rc.QueryParams["label"],
	}
	if raw, ok := rc.QueryParams["domain_id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return api.BadRequest("domain_id must be numeric")
		}
		filter.DomainID = id
	}
	if raw, ok := rc.QueryParams["verified"]; ok {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			return api.BadRequest("verified must be a boolean")
		}
		filter.Verified = &verified
	}

	bugs, total, err := h.store.ListBugs(rc.Request.Context(), filter, page.Offset(), page.PerPage)
	if err != nil {
		return nil, err
	}
	return api.Paginated(bugs, api.NewPageInfo(page.Page, page.PerPage, total))
}

// Get serves GET /bugs/{id}.
func (h *BugsHandler) Get(rc *router.Context) (*router.Response, error) {
	id, err := strconv.ParseInt(rc.PathParams["id"], 10, 64)
	if err != nil {
		return api.BadRequest("bug id must be numeric")
	}

	detail, err := h.store.GetBug(rc.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return api.NotFound("bug not found")
		}
		return nil, err
	}
	return api.OK(detail)
}

// createBugRequest is the POST /bugs payload.
type createBugRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Label       string `json:"label"`
	DomainID    int64  `json:"domain_id"`
	UserID      int64  `json:"user_id"`
}

// Create serves POST /bugs.
func (h *BugsHandler) Create(rc *router.Context) (*router.Response, error) {
	var req createBugRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}

	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Description) == "" {
		return api.BadRequest("url and description are required")
	}
	if len(req.URL) > maxBugURLLength {
		return api.BadRequest("url must be at most 200 characters")
	}

	bug, err := h.store.CreateBug(rc.Request.Context(), store.NewBug{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Label:       req.Label,
		DomainID:    req.DomainID,
		UserID:      req.UserID,
	})
	if err != nil {
		if errors.Is(err, util.ErrInvalidInput) {
			return api.BadRequest(err.Error())
		}
		return nil, err
	}

	h.logger.WithContext(rc.Request.Context()).Info("bug created",
		observability.Int64("bug_id", bug.ID),
		observability.String("url", bug.URL))
	return api.Created(bug)
}

// Search serves GET /bugs/search.
func (h *BugsHandler) Search(rc *router.Context) (*router.Response, error) {
	query := strings.TrimSpace(rc.QueryParams["q"])
	if query == "" {
		return api.BadRequest("q is required")
	}

	limit := defaultSearchLimit
	if raw, ok := rc.QueryParams["limit"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			switch {
			case n < 1:
				limit = defaultSearchLimit
			case n > maxSearchLimit:
				limit = maxSearchLimit
			default:
				limit = n
			}
		}
	}

	bugs, total, err := h.store.SearchBugs(rc.Request.Context(), query, 0, limit)
	if err != nil {
		return nil, err
	}
	return api.Paginated(bugs, api.NewPageInfo(1, limit, total))
}

// addScreenshotRequest is the POST /bugs/{id}/screenshots payload.
type addScreenshotRequest struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// AddScreenshot serves POST /bugs/{id}/screenshots.
func (h *BugsHandler) AddScreenshot(rc *router.Context) (*router.Response, error) {
	id, err := strconv.ParseInt(rc.PathParams["id"], 10, 64)
	if err != nil {
		return api.BadRequest("bug id must be numeric")
	}

	var req addScreenshotRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return api.BadRequest("image_url is required")
	}

	shot, err := h.store.AddScreenshot(rc.Request.Context(), id, req.ImageURL, req.Caption)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return api.NotFound("bug not found")
		}
		return nil, err
	}
	return api.Created(shot)
}

// addTagRequest is the POST /bugs/{id}/tags payload.
type addTagRequest struct {
	Name string `json:"name"`
}

// AddTag serves POST /bugs/{id}/tags.
func (h *BugsHandler) AddTag(rc *router.Context) (*router.Response, error) {
	id, err := strconv.ParseInt(rc.PathParams["id"], 10, 64)
	if err != nil {
		return api.BadRequest("bug id must be numeric")
	}

	var req addTagRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}

	tag, err := h.store.TagBug(rc.Request.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNotFound):
			return api.NotFound("bug not found")
		case errors.Is(err, util.ErrInvalidInput):
			return api.BadRequest(err.Error())
		}
		return nil, err
	}
	return api.Created(tag)
}
