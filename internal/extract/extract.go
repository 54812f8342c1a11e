// Package extract pulls (name, url, description) records out of a raw result
// page with an engine-specific regular expression.
package extract

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/textnorm"
)

// Capture group names every extraction pattern must define.
const (
	GroupName = "name"
	GroupURL  = "url"
	GroupDesc = "desc"
)

// ErrMissingGroup is returned by Compile when a pattern lacks one of the
// required named groups.
var ErrMissingGroup = eris.New("extract: pattern is missing a required named group")

// Window narrows a page to the region holding results. Empty markers are
// ignored, as are markers not found in the page.
type Window struct {
	Start string
	End   string
}

// Apply returns the portion of page selected by the window: everything from
// the first occurrence of Start, cut before the first occurrence of End.
func (w Window) Apply(page string) string {
	if w.Start != "" {
		if i := strings.Index(page, w.Start); i >= 0 {
			page = page[i:]
		}
	}
	if w.End != "" {
		if i := strings.Index(page, w.End); i >= 0 {
			page = page[:i]
		}
	}
	return page
}

// Pattern is a compiled extraction expression with resolved group indexes.
type Pattern struct {
	re *regexp.Regexp

	nameIdx, urlIdx, descIdx int
}

// Compile compiles expr so that '.' also matches newlines and verifies it
// exposes the name, url and desc groups.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile("(?s)" + expr)
	if err != nil {
		return nil, eris.Wrap(err, "extract: compile pattern")
	}
	p := &Pattern{
		re:      re,
		nameIdx: re.SubexpIndex(GroupName),
		urlIdx:  re.SubexpIndex(GroupURL),
		descIdx: re.SubexpIndex(GroupDesc),
	}
	if p.nameIdx < 0 || p.urlIdx < 0 || p.descIdx < 0 {
		return nil, eris.Wrapf(ErrMissingGroup, "pattern %q", expr)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. Intended for built-in
// patterns.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source of the compiled expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// Extract returns the records found in the windowed page, in match order.
// Name and description are normalized to plain text; the URL is returned
// verbatim. No match yields an empty, non-nil slice.
func Extract(page string, w Window, p *Pattern) []model.SearchResult {
	page = w.Apply(page)
	matches := p.re.FindAllStringSubmatch(page, -1)
	out := make([]model.SearchResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, model.SearchResult{
			Name:        textnorm.Normalize(m[p.nameIdx]),
			URL:         m[p.urlIdx],
			Description: textnorm.Normalize(m[p.descIdx]),
		})
	}
	return out
}
