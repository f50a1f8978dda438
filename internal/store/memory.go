package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

// MemoryStore is an in-process Store. The gateway runs one instance per
// edge node; records live for the lifetime of the process.
type MemoryStore struct {
	mu          sync.RWMutex
	bugs        map[int64]*Bug
	screenshots map[int64][]Screenshot
	tags        map[int64]*Tag
	bugTags     map[int64][]int64
	nextBugID   int64
	nextShotID  int64
	nextTagID   int64
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bugs:        make(map[int64]*Bug),
		screenshots: make(map[int64][]Screenshot),
		tags:        make(map[int64]*Tag),
		bugTags:     make(map[int64][]int64),
		nextBugID:   1,
		nextShotID:  1,
		nextTagID:   1,
		now:         time.Now,
	}
}

// ListBugs implements Store.
func (s *MemoryStore) ListBugs(_ context.Context, filter BugFilter, offset, limit int) ([]Bug, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.collect(func(b *Bug) bool {
		if filter.Status != "" && b.Status != filter.Status {
			return false
		}
		if filter.Label != "" && b.Label != filter.Label {
			return false
		}
		if filter.DomainID != 0 && b.DomainID != filter.DomainID {
			return false
		}
		if filter.UserID != 0 && b.UserID != filter.UserID {
			return false
		}
		if filter.Verified != nil && b.Verified != *filter.Verified {
			return false
		}
		return true
	})

	return window(matched, offset, limit), len(matched), nil
}

// GetBug implements Store.
func (s *MemoryStore) GetBug(_ context.Context, id int64) (*BugDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bugs[id]
	if !ok {
		return nil, util.WrapError(util.ErrNotFound, "bug")
	}

	detail := &BugDetail{
		Bug:         *b,
		Screenshots: append([]Screenshot(nil), s.screenshots[id]...),
		Tags:        make([]Tag, 0, len(s.bugTags[id])),
	}
	for _, tagID := range s.bugTags[id] {
		if tag, ok := s.tags[tagID]; ok {
			detail.Tags = append(detail.Tags, *tag)
		}
	}
	return detail, nil
}

// CreateBug implements Store.
func (s *MemoryStore) CreateBug(_ context.Context, nb NewBug) (*Bug, error) {
	if strings.TrimSpace(nb.URL) == "" || strings.TrimSpace(nb.Description) == "" {
		return nil, util.WrapError(util.ErrInvalidInput, "url and description are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b := &Bug{
		ID:          s.nextBugID,
		Title:       nb.Title,
		Description: nb.Description,
		URL:         nb.URL,
		Status:      "open",
		Label:       nb.Label,
		DomainID:    nb.DomainID,
		UserID:      nb.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextBugID++
	s.bugs[b.ID] = b

	out := *b
	return &out, nil
}

// SearchBugs implements Store.
func (s *MemoryStore) SearchBugs(_ context.Context, query string, offset, limit int) ([]Bug, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	matched := s.collect(func(b *Bug) bool {
		if needle == "" {
			return false
		}
		return strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Description), needle)
	})

	return window(matched, offset, limit), len(matched), nil
}

// AddScreenshot implements Store.
func (s *MemoryStore) AddScreenshot(_ context.Context, bugID int64, imageURL, caption string) (*Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bugs[bugID]; !ok {
		return nil, util.WrapError(util.ErrNotFound, "bug")
	}

	shot := Screenshot{
		ID:        s.nextShotID,
		BugID:     bugID,
		ImageURL:  imageURL,
		Caption:   caption,
		CreatedAt: s.now(),
	}
	s.nextShotID++
	s.screenshots[bugID] = append(s.screenshots[bugID], shot)
	return &shot, nil
}

// TagBug implements Store.
func (s *MemoryStore) TagBug(_ context.Context, bugID int64, name string) (*Tag, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return nil, util.WrapError(util.ErrInvalidInput, "tag name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bugs[bugID]; !ok {
		return nil, util.WrapError(util.ErrNotFound, "bug")
	}

	var tag *Tag
	for _, t := range s.tags {
		if t.Name == name {
			tag = t
			break
		}
	}
	if tag == nil {
		tag = &Tag{ID: s.nextTagID, Name: name}
		s.nextTagID++
		s.tags[tag.ID] = tag
	}

	for _, existing := range s.bugTags[bugID] {
		if existing == tag.ID {
			out := *tag
			return &out, nil
		}
	}
	s.bugTags[bugID] = append(s.bugTags[bugID], tag.ID)

	out := *tag
	return &out, nil
}

// ListDomainTags implements Store.
func (s *MemoryStore) ListDomainTags(_ context.Context, domainID int64) ([]Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]bool)
	tags := make([]Tag, 0)
	for bugID, b := range s.bugs {
		if b.DomainID != domainID {
			continue
		}
		for _, tagID := range s.bugTags[bugID] {
			if seen[tagID] {
				continue
			}
			if tag, ok := s.tags[tagID]; ok {
				seen[tagID] = true
				tags = append(tags, *tag)
			}
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

// collect returns copies of all bugs passing the predicate, newest
// first with ID as tie-break so ordering is stable.
func (s *MemoryStore) collect(keep func(*Bug) bool) []Bug {
	matched := make([]Bug, 0, len(s.bugs))
	for _, b := range s.bugs {
		if keep(b) {
			matched = append(matched, *b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func window(bugs []Bug, offset, limit int) []Bug {
	if offset > len(bugs) {
		offset = len(bugs)
	}
	end := offset + limit
	if limit <= 0 || end > len(bugs) {
		end = len(bugs)
	}
	return bugs[offset:end]
}
