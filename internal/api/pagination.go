package api

import "strconv"

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Pagination is the normalized list window parsed from query
// parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// Offset returns the zero-based index of the first item in the window.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePagination reads page and per_page from the query parameters.
// Missing or unparsable values fall back to defaults; out-of-range
// values are clamped rather than rejected.
func ParsePagination(query map[string]string) Pagination {
	p := Pagination{Page: 1, PerPage: defaultPerPage}

	if raw, ok := query["page"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			p.Page = n
		}
	}
	if raw, ok := query["per_page"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			switch {
			case n < 1:
				p.PerPage = defaultPerPage
			case n > maxPerPage:
				p.PerPage = maxPerPage
			default:
				p.PerPage = n
			}
		}
	}
	return p
}

// Slice applies the window to a total count, returning the [start, end)
// bounds for an in-memory slice of that length.
func (p Pagination) Slice(total int) (int, int) {
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.PerPage
	if end > total {
		end = total
	}
	return start, end
}
