// Package provider describes how to query one search engine: its URL
// templates, paging convention and extraction pattern.
package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/websearch/internal/extract"
	"github.com/sells-group/websearch/internal/model"
)

// Template placeholders.
const (
	QueryPlaceholder = "{q}"
	PagePlaceholder  = "{n}"
)

// PageMode selects how the page identifier in PageURL is computed.
type PageMode string

const (
	PageZero   PageMode = "page0"   // 0-based page index
	PageOne    PageMode = "page1"   // 1-based page index
	OffsetZero PageMode = "offset0" // 0-based index of the first result
	OffsetOne  PageMode = "offset1" // 1-based index of the first result
)

// PageModes returns every supported page mode.
func PageModes() []PageMode {
	return []PageMode{PageZero, PageOne, OffsetZero, OffsetOne}
}

// ConfigurationError reports an invalid provider definition.
type ConfigurationError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s: invalid %s: %s", e.Provider, e.Field, e.Reason)
}

// PageIdentifier returns the value substituted for {n} when requesting the
// page that follows pagesFetched already-fetched pages.
func PageIdentifier(mode PageMode, pagesFetched, resultsPerPage int) (int, error) {
	switch mode {
	case PageZero:
		return pagesFetched, nil
	case PageOne:
		return pagesFetched + 1, nil
	case OffsetZero:
		return pagesFetched * resultsPerPage, nil
	case OffsetOne:
		return pagesFetched*resultsPerPage + 1, nil
	default:
		return 0, &ConfigurationError{Field: "page_mode", Reason: fmt.Sprintf("unknown page mode %q", mode)}
	}
}

// Definition is the static, swappable description of one engine.
// ResultsPerPage must match the engine's real page size or offset paging
// will skip or repeat records.
type Definition struct {
	Name           string   `yaml:"name" json:"name"`
	Version        string   `yaml:"version,omitempty" json:"version,omitempty"`
	QueryURL       string   `yaml:"query_url" json:"query_url"`
	PageURL        string   `yaml:"page_url" json:"page_url"`
	ResultsPerPage int      `yaml:"results_per_page" json:"results_per_page"`
	PageMode       PageMode `yaml:"page_mode" json:"page_mode"`
	WindowStart    string   `yaml:"window_start,omitempty" json:"window_start,omitempty"`
	WindowEnd      string   `yaml:"window_end,omitempty" json:"window_end,omitempty"`
	Pattern        string   `yaml:"pattern" json:"pattern"`

	// FixURL rewrites each extracted URL, e.g. to strip a redirect wrapper.
	// Nil leaves URLs untouched.
	FixURL func(string) string `yaml:"-" json:"-"`
}

// Provider is a validated Definition with its pattern compiled.
type Provider struct {
	def     Definition
	pattern *extract.Pattern
}

// Compile validates d and compiles its extraction pattern. The page mode is
// not checked here; an unknown mode surfaces when a second page is requested.
func Compile(d Definition) (*Provider, error) {
	invalid := func(field, reason string) error {
		return &ConfigurationError{Provider: d.Name, Field: field, Reason: reason}
	}
	switch {
	case d.Name == "":
		return nil, invalid("name", "must not be empty")
	case !strings.Contains(d.QueryURL, QueryPlaceholder):
		return nil, invalid("query_url", "missing "+QueryPlaceholder)
	case !strings.Contains(d.PageURL, PagePlaceholder):
		return nil, invalid("page_url", "missing "+PagePlaceholder)
	case d.ResultsPerPage <= 0:
		return nil, invalid("results_per_page", "must be positive")
	}
	p, err := extract.Compile(d.Pattern)
	if err != nil {
		return nil, invalid("pattern", err.Error())
	}
	return &Provider{def: d, pattern: p}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(d Definition) *Provider {
	p, err := Compile(d)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the engine name.
func (p *Provider) Name() string { return p.def.Name }

// Definition returns a copy of the source definition.
func (p *Provider) Definition() Definition { return p.def }

// QueryURL returns the URL of the first result page for query.
func (p *Provider) QueryURL(query string) string {
	return strings.ReplaceAll(p.def.QueryURL, QueryPlaceholder, url.QueryEscape(query))
}

// PageURL returns the URL of the page that follows pagesFetched pages.
func (p *Provider) PageURL(query string, pagesFetched int) (string, error) {
	n, err := PageIdentifier(p.def.PageMode, pagesFetched, p.def.ResultsPerPage)
	if err != nil {
		if ce, ok := err.(*ConfigurationError); ok {
			ce.Provider = p.def.Name
		}
		return "", err
	}
	r := strings.NewReplacer(
		QueryPlaceholder, url.QueryEscape(query),
		PagePlaceholder, strconv.Itoa(n),
	)
	return r.Replace(p.def.PageURL), nil
}

// Extract pulls the records out of a fetched page.
func (p *Provider) Extract(page string) []model.SearchResult {
	w := extract.Window{Start: p.def.WindowStart, End: p.def.WindowEnd}
	records := extract.Extract(page, w, p.pattern)
	if p.def.FixURL != nil {
		for i := range records {
			records[i].URL = p.def.FixURL(records[i].URL)
		}
	}
	return records
}
