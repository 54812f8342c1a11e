//go:build !integration

package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/websearch/internal/config"
	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/registry"
	"github.com/sells-group/websearch/internal/store"
)

type fetchFunc func(ctx context.Context, url string, headers http.Header) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	return f(ctx, url, headers)
}

func stubDefinition(name string) provider.Definition {
	return provider.Definition{
		Name:           name,
		QueryURL:       "http://" + name + ".test/?q={q}",
		PageURL:        "http://" + name + ".test/?q={q}&n={n}",
		ResultsPerPage: 3,
		PageMode:       provider.PageOne,
		Pattern:        `<p><a href="(?P<url>.*?)">(?P<name>.*?)</a> (?P<desc>.*?)</p>`,
	}
}

// testRegistry holds the built-in engines plus "alpha", which returns three
// records, and "down", which always fails. Built-in engines see empty pages.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	f := fetchFunc(func(_ context.Context, url string, _ http.Header) (string, error) {
		switch {
		case strings.HasPrefix(url, "http://down.test/"):
			return "", &fetcher.NetworkError{URL: url, StatusCode: http.StatusServiceUnavailable}
		case strings.HasPrefix(url, "http://alpha.test/") && !strings.Contains(url, "&n="):
			var b strings.Builder
			for i := range 3 {
				fmt.Fprintf(&b, `<p><a href="http://alpha.test/%d">Alpha %d</a> about %d</p>`, i, i, i)
			}
			return b.String(), nil
		default:
			return "", nil
		}
	})

	reg, err := registry.New(registry.Options{
		Fetcher:   f,
		Overrides: []provider.Definition{stubDefinition("alpha"), stubDefinition("down")},
	})
	require.NoError(t, err)
	return reg
}

func testStore(t *testing.T) store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// withConfig installs a zero config for code paths that read the global.
func withConfig(t *testing.T) {
	t.Helper()

	prev := cfg
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = prev })
}
