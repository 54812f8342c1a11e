// Package registry exposes the named search engines.
package registry

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/resilience"
	"github.com/sells-group/websearch/internal/search"
)

const maxConcurrentEngines = 6

// ErrUnknownEngine is returned for a name the registry does not hold.
var ErrUnknownEngine = eris.New("registry: unknown engine")

// Options configures a Registry. Zero values select the defaults.
type Options struct {
	// Fetcher retrieves pages for every engine. Nil uses an HTTPFetcher with
	// default options.
	Fetcher fetcher.PageFetcher

	// Overrides are merged onto the built-in definitions by name; new names
	// add engines.
	Overrides []provider.Definition

	// Breakers, when set, gives each engine its own circuit breaker.
	Breakers *resilience.EngineBreakers

	// Engine holds the per-engine defaults. Its Breaker field is ignored.
	Engine search.EngineOptions
}

// Registry maps engine names to ready-to-use engines. It is read-only after
// New and safe for concurrent use.
type Registry struct {
	engines  map[string]*search.Engine
	names    []string
	breakers *resilience.EngineBreakers
}

// New compiles the built-in definitions plus any overrides.
func New(opts Options) (*Registry, error) {
	f := opts.Fetcher
	if f == nil {
		f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}

	defs := provider.Merge(provider.Builtins(), opts.Overrides)
	r := &Registry{
		engines:  make(map[string]*search.Engine, len(defs)),
		names:    make([]string, 0, len(defs)),
		breakers: opts.Breakers,
	}
	for _, d := range defs {
		p, err := provider.Compile(d)
		if err != nil {
			return nil, err
		}
		eo := opts.Engine
		eo.Breaker = nil
		if opts.Breakers != nil {
			eo.Breaker = opts.Breakers.Get(d.Name)
		}
		r.engines[d.Name] = search.NewEngine(p, f, eo)
		r.names = append(r.names, d.Name)
	}
	slices.Sort(r.names)
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(opts Options) *Registry {
	r, err := New(opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns the engine names in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Get returns the named engine.
func (r *Registry) Get(name string) (*search.Engine, error) {
	e, ok := r.engines[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownEngine, "%q", name)
	}
	return e, nil
}

// Search runs query on the named engine.
func (r *Registry) Search(ctx context.Context, name, query string, opts ...search.Option) (search.Results, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, query, opts...), nil
}

// CircuitStates reports the breaker state of every engine that has one.
func (r *Registry) CircuitStates() map[string]resilience.CircuitState {
	if r.breakers == nil {
		return nil
	}
	return r.breakers.States()
}

// EngineResult is one engine's share of a fan-out search.
type EngineResult struct {
	Engine  string               `json:"engine"`
	Results []model.SearchResult `json:"results"`
	Stats   search.Stats         `json:"stats"`
	Err     error                `json:"-"`
}

// SearchAll runs query on every named engine concurrently, collecting up to
// maxResults records from each. An engine failure is reported in its
// EngineResult and does not stop the others. Results follow the order of
// names.
func (r *Registry) SearchAll(ctx context.Context, names []string, query string, maxResults int) ([]EngineResult, error) {
	engines := make([]*search.Engine, len(names))
	for i, name := range names {
		e, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		engines[i] = e
	}

	out := make([]EngineResult, len(engines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEngines)

	for i, e := range engines {
		g.Go(func() error {
			s := e.NewSession(gctx, query, search.WithMaxResults(maxResults))
			var records []model.SearchResult
			var err error
			for rec, rerr := range s.All() {
				if rerr != nil {
					err = rerr
					break
				}
				records = append(records, rec)
			}
			if err != nil {
				zap.L().Warn("engine search failed",
					zap.String("engine", e.Name()),
					zap.String("query", query),
					zap.Error(err),
				)
			}

			out[i] = EngineResult{Engine: e.Name(), Results: records, Stats: s.Stats(), Err: err}
			return nil // don't fail the group
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "registry: search all")
	}
	return out, nil
}

var defaultRegistry atomic.Pointer[Registry]

// Default returns the registry used by the package-level engine functions,
// building one from the built-ins on first use.
func Default() *Registry {
	if r := defaultRegistry.Load(); r != nil {
		return r
	}
	defaultRegistry.CompareAndSwap(nil, MustNew(Options{}))
	return defaultRegistry.Load()
}

// SetDefault replaces the registry used by the package-level engine
// functions.
func SetDefault(r *Registry) {
	defaultRegistry.Store(r)
}
