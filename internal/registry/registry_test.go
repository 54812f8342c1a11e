package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/resilience"
	"github.com/sells-group/websearch/internal/search"
)

// fetchFunc adapts a function to fetcher.PageFetcher.
type fetchFunc func(ctx context.Context, url string, headers http.Header) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	return f(ctx, url, headers)
}

const stubPattern = `<p><a href="(?P<url>.*?)">(?P<name>.*?)</a> (?P<desc>.*?)</p>`

func stubDefinition(name string) provider.Definition {
	return provider.Definition{
		Name:           name,
		QueryURL:       "http://" + name + ".test/?q={q}",
		PageURL:        "http://" + name + ".test/?q={q}&n={n}",
		ResultsPerPage: 3,
		PageMode:       provider.PageOne,
		Pattern:        stubPattern,
	}
}

// stubFetcher serves three records on the first page of every *.test host
// and nothing after. Hosts named "down" fail.
func stubFetcher() fetchFunc {
	return func(_ context.Context, url string, _ http.Header) (string, error) {
		if strings.HasPrefix(url, "http://down.test/") {
			return "", &fetcher.NetworkError{URL: url, StatusCode: http.StatusBadGateway}
		}
		if strings.Contains(url, "&n=") {
			return "", nil
		}
		host := strings.TrimPrefix(url, "http://")
		host = host[:strings.Index(host, "/")]
		var b strings.Builder
		for i := range 3 {
			fmt.Fprintf(&b, `<p><a href="http://%s/%d">%s %d</a> about %d</p>`, host, i, host, i, i)
		}
		return b.String(), nil
	}
}

func newStubRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Options{
		Fetcher:   stubFetcher(),
		Overrides: []provider.Definition{stubDefinition("alpha"), stubDefinition("beta"), stubDefinition("down")},
	})
	require.NoError(t, err)
	return r
}

func TestNew_Builtins(t *testing.T) {
	r, err := New(Options{Fetcher: stubFetcher()})
	require.NoError(t, err)
	assert.Equal(t, []string{"ask", "dmoz", "excite", "google", "msn", "yahoo"}, r.Names())
	assert.Nil(t, r.CircuitStates())
}

func TestNew_InvalidOverride(t *testing.T) {
	bad := stubDefinition("bad")
	bad.Pattern = `(?P<url>x)`
	_, err := New(Options{Fetcher: stubFetcher(), Overrides: []provider.Definition{bad}})
	var ce *provider.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bad", ce.Provider)

	assert.Panics(t, func() { MustNew(Options{Overrides: []provider.Definition{bad}}) })
}

func TestGet_Unknown(t *testing.T) {
	r := newStubRegistry(t)
	_, err := r.Get("altavista")
	assert.True(t, eris.Is(err, ErrUnknownEngine))

	_, err = r.Search(context.Background(), "altavista", "q")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	r := newStubRegistry(t)
	res, err := r.Search(context.Background(), "alpha", "q", search.WithMaxResults(2))
	require.NoError(t, err)

	got, err := search.Collect(context.Background(), res, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "http://alpha.test/0", got[0].URL)
	assert.Equal(t, "alpha.test 1", got[1].Name)
	assert.Equal(t, "about 1", got[1].Description)
}

func TestSearchAll(t *testing.T) {
	r := newStubRegistry(t)
	out, err := r.SearchAll(context.Background(), []string{"beta", "down", "alpha"}, "q", 10)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "beta", out[0].Engine)
	assert.Len(t, out[0].Results, 3)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, search.StateExhausted, out[0].Stats.State)

	assert.Equal(t, "down", out[1].Engine)
	assert.Empty(t, out[1].Results)
	assert.True(t, fetcher.IsNetworkError(out[1].Err))

	assert.Equal(t, "alpha", out[2].Engine)
	assert.Len(t, out[2].Results, 3)
}

func TestSearchAll_RespectsMax(t *testing.T) {
	r := newStubRegistry(t)
	out, err := r.SearchAll(context.Background(), []string{"alpha", "beta"}, "q", 1)
	require.NoError(t, err)
	for _, er := range out {
		assert.Len(t, er.Results, 1, er.Engine)
	}
}

func TestSearchAll_UnknownName(t *testing.T) {
	r := newStubRegistry(t)
	_, err := r.SearchAll(context.Background(), []string{"alpha", "nope"}, "q", 5)
	assert.True(t, eris.Is(err, ErrUnknownEngine))
}

func TestBreakers(t *testing.T) {
	breakers := resilience.NewEngineBreakers(resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	r, err := New(Options{
		Fetcher:   stubFetcher(),
		Overrides: []provider.Definition{stubDefinition("down")},
		Breakers:  breakers,
	})
	require.NoError(t, err)

	_, err = r.SearchAll(context.Background(), []string{"down"}, "q", 5)
	require.NoError(t, err)

	states := r.CircuitStates()
	assert.Equal(t, resilience.CircuitOpen, states["down"])
	assert.Equal(t, resilience.CircuitClosed, states["google"])
}

const googlePage = `<html><body>
<div class=g><a href="http://go.dev/" class=l>The <b>Go</b> Programming Language</a>
<table><tr><td>Go is an open source programming language &middot; simple &amp; fast.<br>
<font color=#008000>go.dev/</font></td></tr></table></div>
</body></html>`

func TestPackageFuncs_UseDefaultRegistry(t *testing.T) {
	prev := defaultRegistry.Load()
	t.Cleanup(func() { defaultRegistry.Store(prev) })

	SetDefault(MustNew(Options{Fetcher: fetchFunc(func(_ context.Context, url string, _ http.Header) (string, error) {
		if url == "http://www.google.com/search?q=golang" {
			return googlePage, nil
		}
		return "", nil
	})}))

	got, err := search.Collect(context.Background(), Google(context.Background(), "golang"), time.Millisecond)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "http://go.dev/", got[0].URL)
	assert.Equal(t, "The Go Programming Language", got[0].Name)
	assert.Equal(t, "Go is an open source programming language · simple & fast.", got[0].Description)

	for name, fn := range map[string]SearchFunc{"ask": Ask, "dmoz": Dmoz, "excite": Excite, "msn": MSN, "yahoo": Yahoo} {
		got, err := search.Collect(context.Background(), fn(context.Background(), "golang", search.NonBlocking()), time.Millisecond)
		assert.NoError(t, err, name)
		assert.Empty(t, got, name)
	}
}

func TestDefault_Lazy(t *testing.T) {
	prev := defaultRegistry.Load()
	t.Cleanup(func() { defaultRegistry.Store(prev) })

	defaultRegistry.Store(nil)
	r := Default()
	require.NotNil(t, r)
	assert.Same(t, r, Default())
}
