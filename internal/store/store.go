// Package store holds the gateway's local bug records. Bugs are served
// from the edge rather than proxied, so reads stay fast even when the
// upstream platform is slow or down.
package store

import (
	"context"
	"time"
)

// Bug is a locally stored bug report.
type Bug struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Label       string    `json:"label"`
	Verified    bool      `json:"verified"`
	DomainID    int64     `json:"domain_id,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	Views       int       `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Screenshot is an image attached to a bug.
type Screenshot struct {
	ID        int64     `json:"id"`
	BugID     int64     `json:"bug_id"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a free-form label attached to bugs.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BugDetail is a bug with its attachments resolved.
type BugDetail struct {
	Bug
	Screenshots []Screenshot `json:"screenshots"`
	Tags        []Tag        `json:"tags"`
}

// BugFilter narrows a bug listing. Zero values mean "no constraint".
type BugFilter struct {
	Status   string
	Label    string
	DomainID int64
	UserID   int64
	Verified *bool
}

// NewBug carries the caller-supplied fields of a bug to create.
type NewBug struct {
	Title       string
	Description string
	URL         string
	Label       string
	DomainID    int64
	UserID      int64
}

// Store is the persistence boundary for locally held bugs.
type Store interface {
	// ListBugs returns the bugs matching the filter, newest first,
	// windowed by offset/limit, plus the total match count.
	ListBugs(ctx context.Context, filter BugFilter, offset, limit int) ([]Bug, int, error)

	// GetBug returns one bug with screenshots and tags. Returns an
	// error satisfying errors.Is(err, util.ErrNotFound) when absent.
	GetBug(ctx context.Context, id int64) (*BugDetail, error)

	// CreateBug persists a new bug and returns it with its assigned ID.
	CreateBug(ctx context.Context, nb NewBug) (*Bug, error)

	// SearchBugs returns bugs whose title or description contains the
	// query, case-insensitively, newest first.
	SearchBugs(ctx context.Context, query string, offset, limit int) ([]Bug, int, error)

	// AddScreenshot attaches a screenshot to an existing bug.
	AddScreenshot(ctx context.Context, bugID int64, imageURL, caption string) (*Screenshot, error)

	// TagBug attaches a tag by name, creating the tag if needed.
	TagBug(ctx context.Context, bugID int64, name string) (*Tag, error)

	// ListDomainTags returns the distinct tags across all bugs filed
	// against a domain.
	ListDomainTags(ctx context.Context, domainID int64) ([]Tag, error)
}
