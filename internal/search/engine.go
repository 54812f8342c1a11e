// Package search drives a provider across result pages and exposes the
// records through blocking and non-blocking iterators.
package search

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/resilience"
)

// Results is a pull-based stream of search records.
type Results interface {
	// Next returns the next record, ErrExhausted at the end of the sequence,
	// ErrNotReady from a non-blocking handle with nothing queued, or the
	// error that stopped the search.
	Next() (model.SearchResult, error)
	Stats() Stats
	Close() error
}

// EngineOptions configures an Engine. Zero values select the defaults.
type EngineOptions struct {
	// Headers are sent with every request unless a call overrides them.
	// Nil means fetcher.DefaultHeaders().
	Headers http.Header

	// Breaker, when set, short-circuits fetches while the engine is failing.
	Breaker *resilience.CircuitBreaker

	DefaultMaxResults int
	PollInterval      time.Duration
}

// Engine searches one provider.
type Engine struct {
	provider *provider.Provider
	fetcher  fetcher.PageFetcher
	opts     EngineOptions
}

// NewEngine returns an engine that fetches pages for p through f.
func NewEngine(p *provider.Provider, f fetcher.PageFetcher, opts EngineOptions) *Engine {
	if opts.Headers == nil {
		opts.Headers = fetcher.DefaultHeaders()
	}
	if opts.DefaultMaxResults == 0 {
		opts.DefaultMaxResults = DefaultMaxResults
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Engine{provider: p, fetcher: f, opts: opts}
}

// Name returns the provider name.
func (e *Engine) Name() string { return e.provider.Name() }

// Provider returns the compiled provider definition.
func (e *Engine) Provider() *provider.Provider { return e.provider }

// Search starts a search for query. The returned Results is a *Session unless
// NonBlocking is given, in which case it is a *Handle.
func (e *Engine) Search(ctx context.Context, query string, opts ...Option) Results {
	o := e.callOptions(opts)
	if o.nonBlocking {
		return e.startHandle(ctx, query, o)
	}
	return e.newSession(ctx, query, o)
}

// NewSession returns a blocking session. Fetches run on the goroutine that
// calls Next.
func (e *Engine) NewSession(ctx context.Context, query string, opts ...Option) *Session {
	return e.newSession(ctx, query, e.callOptions(opts))
}

// StartBackground returns a non-blocking handle whose worker starts
// immediately.
func (e *Engine) StartBackground(ctx context.Context, query string, opts ...Option) *Handle {
	return e.startHandle(ctx, query, e.callOptions(opts))
}

func (e *Engine) callOptions(opts []Option) callOptions {
	o := callOptions{
		maxResults:   e.opts.DefaultMaxResults,
		pollInterval: e.opts.PollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.headers == nil {
		o.headers = e.opts.Headers.Clone()
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	return o
}

// fetch retrieves one page, through the circuit breaker when configured.
// A rejected call is reported as a network failure for the page.
func (e *Engine) fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	if e.opts.Breaker == nil {
		return e.fetcher.Fetch(ctx, url, headers)
	}
	page, err := resilience.ExecuteVal(ctx, e.opts.Breaker, func(ctx context.Context) (string, error) {
		return e.fetcher.Fetch(ctx, url, headers)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", &fetcher.NetworkError{URL: url, Err: err}
	}
	return page, err
}
