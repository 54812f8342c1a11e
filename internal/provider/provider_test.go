package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition() Definition {
	return Definition{
		Name:           "fake",
		QueryURL:       "http://fake.test/search?q={q}",
		PageURL:        "http://fake.test/search?q={q}&n={n}",
		ResultsPerPage: 10,
		PageMode:       OffsetOne,
		Pattern:        `<a href="(?P<url>.*?)">(?P<name>.*?)</a><p>(?P<desc>.*?)</p>`,
	}
}

func TestPageIdentifier(t *testing.T) {
	tests := []struct {
		mode PageMode
		want int
	}{
		{PageZero, 2},
		{PageOne, 3},
		{OffsetZero, 20},
		{OffsetOne, 21},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, err := PageIdentifier(tt.mode, 2, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageIdentifier_FirstFollowUpPage(t *testing.T) {
	got, err := PageIdentifier(OffsetZero, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	got, err = PageIdentifier(PageOne, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestPageIdentifier_UnknownMode(t *testing.T) {
	_, err := PageIdentifier("page2", 1, 10)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "page_mode", ce.Field)
}

func TestPageModes(t *testing.T) {
	for _, m := range PageModes() {
		_, err := PageIdentifier(m, 1, 10)
		assert.NoError(t, err, m)
	}
}

func TestCompile_Valid(t *testing.T) {
	p, err := Compile(testDefinition())
	require.NoError(t, err)
	assert.Equal(t, "fake", p.Name())
	assert.Equal(t, 10, p.Definition().ResultsPerPage)
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Definition)
		field string
	}{
		{"empty name", func(d *Definition) { d.Name = "" }, "name"},
		{"query url without placeholder", func(d *Definition) { d.QueryURL = "http://fake.test/" }, "query_url"},
		{"page url without placeholder", func(d *Definition) { d.PageURL = "http://fake.test/?q={q}" }, "page_url"},
		{"zero results per page", func(d *Definition) { d.ResultsPerPage = 0 }, "results_per_page"},
		{"missing desc group", func(d *Definition) { d.Pattern = `(?P<url>x)(?P<name>y)` }, "pattern"},
		{"bad regexp", func(d *Definition) { d.Pattern = `(?P<url>` }, "pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDefinition()
			tt.edit(&d)
			_, err := Compile(d)
			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompile_UnknownPageModeDeferred(t *testing.T) {
	d := testDefinition()
	d.PageMode = "bogus"
	p, err := Compile(d)
	require.NoError(t, err)

	assert.Equal(t, "http://fake.test/search?q=go", p.QueryURL("go"))

	_, err = p.PageURL("go", 1)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "fake", ce.Provider)
	assert.Contains(t, ce.Error(), "bogus")
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile(Definition{}) })
}

func TestQueryURL_Escapes(t *testing.T) {
	p := MustCompile(testDefinition())
	assert.Equal(t, "http://fake.test/search?q=fish+%26+chips", p.QueryURL("fish & chips"))
}

func TestPageURL(t *testing.T) {
	p := MustCompile(testDefinition())
	u, err := p.PageURL("web search", 1)
	require.NoError(t, err)
	assert.Equal(t, "http://fake.test/search?q=web+search&n=11", u)

	u, err = p.PageURL("web search", 3)
	require.NoError(t, err)
	assert.Equal(t, "http://fake.test/search?q=web+search&n=31", u)
}

func TestExtract(t *testing.T) {
	d := testDefinition()
	d.WindowStart = "<body>"
	d.WindowEnd = "</body>"
	p := MustCompile(d)

	page := `<a href="/skip">Header</a><p>outside</p><body>` +
		`<a href="http://a.test/">A &amp; B</a><p>first  one</p>` +
		`<a href="http://b.test/">B</a><p>second</p></body>`
	got := p.Extract(page)
	require.Len(t, got, 2)
	assert.Equal(t, "A & B", got[0].Name)
	assert.Equal(t, "http://a.test/", got[0].URL)
	assert.Equal(t, "first one", got[0].Description)
	assert.Equal(t, "http://b.test/", got[1].URL)
}

func TestExtract_FixURL(t *testing.T) {
	d := testDefinition()
	d.FixURL = func(u string) string { return strings.TrimPrefix(u, "/redirect?to=") }
	p := MustCompile(d)

	got := p.Extract(`<a href="/redirect?to=http://x.test/">X</a><p>d</p>`)
	require.Len(t, got, 1)
	assert.Equal(t, "http://x.test/", got[0].URL)
}

func TestExtract_NoMatches(t *testing.T) {
	p := MustCompile(testDefinition())
	got := p.Extract("<html>nothing here</html>")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuiltins_Compile(t *testing.T) {
	defs := Builtins()
	require.Len(t, defs, 6)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		p, err := Compile(d)
		require.NoError(t, err, d.Name)
		assert.Equal(t, BuiltinVersion, d.Version)
		assert.Contains(t, PageModes(), d.PageMode)

		_, err = p.PageURL("golang", 1)
		assert.NoError(t, err, d.Name)
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{Ask, Dmoz, Excite, Google, MSN, Yahoo}, names)
}

func TestBuiltins_GooglePaging(t *testing.T) {
	for _, d := range Builtins() {
		if d.Name != Google {
			continue
		}
		p := MustCompile(d)
		u, err := p.PageURL("go lang", 1)
		require.NoError(t, err)
		assert.Equal(t, "http://www.google.com/search?start=10&q=go+lang", u)
		return
	}
	t.Fatal("google builtin missing")
}
