package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/websearch/internal/fetcher"
	"github.com/sells-group/websearch/internal/provider"
)

const fakePattern = `<li><a href="(?P<url>.*?)">(?P<name>.*?)</a><p>(?P<desc>.*?)</p></li>`

// fakeEngine serves total numbered results, perPage at a time, honoring the
// page identifier convention of mode.
type fakeEngine struct {
	total     int
	perPage   int
	mode      provider.PageMode
	failPage  int  // 1-based page that answers 500; 0 never fails
	ignorePgn bool // always serve the first page

	requests atomic.Int64
	srv      *httptest.Server
}

func newFakeEngine(t *testing.T, total, perPage int, mode provider.PageMode) *fakeEngine {
	t.Helper()
	fe := &fakeEngine{total: total, perPage: perPage, mode: mode}
	fe.srv = httptest.NewServer(http.HandlerFunc(fe.serve))
	t.Cleanup(fe.srv.Close)
	return fe
}

func (fe *fakeEngine) pageIndex(r *http.Request) int {
	raw := r.URL.Query().Get("n")
	if raw == "" || fe.ignorePgn {
		return 0
	}
	n, _ := strconv.Atoi(raw)
	switch fe.mode {
	case provider.PageZero:
		return n
	case provider.PageOne:
		return n - 1
	case provider.OffsetZero:
		return n / fe.perPage
	default:
		return (n - 1) / fe.perPage
	}
}

func (fe *fakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	fe.requests.Add(1)
	idx := fe.pageIndex(r)
	if fe.failPage > 0 && idx+1 == fe.failPage {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := idx * fe.perPage; i < (idx+1)*fe.perPage && i < fe.total; i++ {
		fmt.Fprintf(&b, `<li><a href="http://example.test/r/%d">Result %d</a><p>Snippet &amp; more %d</p></li>`, i, i, i)
	}
	b.WriteString("</ul></body></html>")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (fe *fakeEngine) definition() provider.Definition {
	return provider.Definition{
		Name:           "fake-" + string(fe.mode),
		QueryURL:       fe.srv.URL + "/search?q={q}",
		PageURL:        fe.srv.URL + "/search?q={q}&n={n}",
		ResultsPerPage: fe.perPage,
		PageMode:       fe.mode,
		WindowStart:    "<ul>",
		WindowEnd:      "</ul>",
		Pattern:        fakePattern,
	}
}

func (fe *fakeEngine) engine(t *testing.T) *Engine {
	t.Helper()
	p, err := provider.Compile(fe.definition())
	require.NoError(t, err)
	return NewEngine(p, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), EngineOptions{})
}

func resultURL(i int) string {
	return fmt.Sprintf("http://example.test/r/%d", i)
}

// mockFetcher is a testify mock of fetcher.PageFetcher.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	args := m.Called(ctx, url, headers)
	return args.String(0), args.Error(1)
}
