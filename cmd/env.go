package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/websearch/internal/config"
	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/registry"
	"github.com/sells-group/websearch/internal/resilience"
	"github.com/sells-group/websearch/internal/search"
	"github.com/sells-group/websearch/internal/store"
)

// searchEnv holds the registry and run store used by the search and serve
// commands.
type searchEnv struct {
	Registry *registry.Registry
	Store    store.Store // nil when run history is disabled
}

// Close releases resources held by the environment.
func (se *searchEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initEnv validates the config for mode and builds the registry and store.
// Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*searchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	// The package-level engine functions share the configured registry.
	registry.SetDefault(reg)

	env := &searchEnv{Registry: reg}
	if cfg.Store.Enabled {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open run store")
		}
		env.Store = st
	}
	return env, nil
}

// buildRegistry wires the fetcher, breakers and provider overrides from c.
func buildRegistry(c *config.Config) (*registry.Registry, error) {
	var overrides []provider.Definition
	if c.Search.ProvidersFile != "" {
		defs, err := provider.LoadFile(c.Search.ProvidersFile)
		if err != nil {
			return nil, err
		}
		zap.L().Info("loaded provider overrides",
			zap.String("file", c.Search.ProvidersFile),
			zap.Int("providers", len(defs)),
		)
		overrides = defs
	}

	retry := resilience.FromRetryConfig(c.Fetch.MaxAttempts, 0, 0)
	retry.OnRetry = resilience.RetryLogger("http")
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    c.Fetch.Timeout(),
		Retry:      retry,
		RatePerSec: c.Fetch.RatePerSec,
		RateBurst:  c.Fetch.RateBurst,
	})

	headers := fetcher.DefaultHeaders()
	if c.Fetch.UserAgent != "" {
		headers.Set("User-Agent", c.Fetch.UserAgent)
	}

	var breakers *resilience.EngineBreakers
	if c.Circuit.FailureThreshold > 0 {
		breakers = resilience.NewEngineBreakers(resilience.FromCircuitConfig(c.Circuit.FailureThreshold, c.Circuit.ResetTimeoutSecs))
	}

	reg, err := registry.New(registry.Options{
		Fetcher:   f,
		Overrides: overrides,
		Breakers:  breakers,
		Engine: search.EngineOptions{
			Headers:           headers,
			DefaultMaxResults: c.Search.DefaultMaxResults,
			PollInterval:      c.Search.PollInterval(),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "build registry")
	}
	return reg, nil
}
