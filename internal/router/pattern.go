package router

import (
	"strings"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

// segment is one element of a compiled pattern: either a literal path
// segment or a named capture slot.
type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool {
	return s.param != ""
}

// SpecificityKey orders route patterns so that concrete templates rank
// ahead of parameterized ones. Keys compare field by field: fewer
// capture slots first, then more literal characters, then fewer
// segments.
type SpecificityKey struct {
	ParamCount   int
	LiteralChars int
	SegmentCount int
}

// Less reports whether k ranks strictly ahead of other.
func (k SpecificityKey) Less(other SpecificityKey) bool {
	if k.ParamCount != other.ParamCount {
		return k.ParamCount < other.ParamCount
	}
	if k.LiteralChars != other.LiteralChars {
		return k.LiteralChars > other.LiteralChars
	}
	return k.SegmentCount < other.SegmentCount
}

// Pattern is a compiled route template. Compiled once at registration
// time and immutable thereafter.
type Pattern struct {
	template    string
	segments    []segment
	paramNames  []string
	specificity SpecificityKey
}

// CompilePattern parses a route template like "/users/{id}/posts" into
// a Pattern. Capture slots use the {name} syntax, match a single path
// segment of word characters and hyphens, and must have unique names
// within one template. Malformed templates (unbalanced braces, empty or
// duplicate capture names) fail with *util.PatternError.
func CompilePattern(template string) (*Pattern, error) {
	if template == "" || template[0] != '/' {
		return nil, util.NewPatternError(template, "must begin with '/'")
	}

	p := &Pattern{template: template}
	seen := make(map[string]bool)

	// The leading slash is a separator, not a segment. Trailing
	// slashes produce an empty literal segment, which can never match
	// a normalized path; definers must write unambiguous templates.
	parts := strings.Split(template[1:], "/")
	if template == "/" {
		parts = nil
	}

	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2:
			name := part[1 : len(part)-1]
			if !isValidParamName(name) {
				return nil, util.NewPatternError(template, "invalid capture name "+name)
			}
			if seen[name] {
				return nil, util.NewPatternError(template, "duplicate capture name "+name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{param: name})
			p.paramNames = append(p.paramNames, name)
		case strings.ContainsAny(part, "{}"):
			return nil, util.NewPatternError(template, "unbalanced braces in segment "+part)
		default:
			p.segments = append(p.segments, segment{literal: part})
		}
	}

	p.specificity = computeSpecificity(template, p.segments)
	return p, nil
}

// computeSpecificity derives the ordering key from the pattern text.
// Literal characters include separators, so a pure-literal template of
// length N yields (0, N, S).
func computeSpecificity(template string, segments []segment) SpecificityKey {
	literalChars := len(template)
	for _, seg := range segments {
		if seg.isParam() {
			literalChars -= len(seg.param) + 2
		}
	}
	return SpecificityKey{
		ParamCount:   countParams(segments),
		LiteralChars: literalChars,
		SegmentCount: len(segments),
	}
}

func countParams(segments []segment) int {
	n := 0
	for _, seg := range segments {
		if seg.isParam() {
			n++
		}
	}
	return n
}

// Template returns the original template text.
func (p *Pattern) Template() string {
	return p.template
}

// ParamNames returns the capture names in template order.
func (p *Pattern) ParamNames() []string {
	return p.paramNames
}

// Specificity returns the precomputed ordering key.
func (p *Pattern) Specificity() SpecificityKey {
	return p.specificity
}

// Match tests a concrete path against the pattern. It returns the
// captured parameters and true on a full end-to-end match. A match
// with no capture slots yields an empty, non-nil map so callers can
// distinguish "matched with no params" from "did not match".
func (p *Pattern) Match(path string) (map[string]string, bool) {
	if path == "" || path[0] != '/' {
		return nil, false
	}

	var parts []string
	if path != "/" {
		parts = strings.Split(path[1:], "/")
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}

	params := make(map[string]string, len(p.paramNames))
	for i, seg := range p.segments {
		if seg.isParam() {
			if !isValidParamValue(parts[i]) {
				return nil, false
			}
			params[seg.param] = parts[i]
			continue
		}
		if parts[i] != seg.literal {
			return nil, false
		}
	}

	return params, true
}

// isValidParamName reports whether name is a valid capture identifier.
func isValidParamName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(name) > 0
}

// isValidParamValue reports whether a path segment is matchable by a
// capture slot: one or more word characters or hyphens.
func isValidParamValue(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
