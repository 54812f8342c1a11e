package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_EntityRoundTrip(t *testing.T) {
	assert.Equal(t, "A & B <tag>", Normalize("A &amp; B &lt;tag&gt;"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"tags", "<b>Go</b> <i>programming</i>", "Go programming"},
		{"tag spanning lines", "a<a\nhref=\"x\">b</a>c", "abc"},
		{"controls", "one\r\ntwo\tthree", "one two three"},
		{"quote", "&quot;quoted&quot;", `"quoted"`},
		{"middot", "Go&middot;lang", "Go·lang"},
		{"numeric", "&#65;&#66;&#67;", "ABC"},
		{"numeric latin1", "caf&#233;", "café"},
		{"numeric newline flattened", "a&#10;b", "a b"},
		{"numeric out of range kept", "&#300;", "&#300;"},
		{"numeric leading zero kept", "&#065;", "&#065;"},
		{"collapse", "a     b  c", "a b c"},
		{"trim", "   padded \n ", "padded"},
		{"sequential amp", "&amp;lt;", "<"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello\n\t<b>World</b> &amp; friends</p>",
		"&#65;&#66; <i>x</i>",
		"  <a href=\"http://example.com\">Go&middot;lang</a>\r\n ",
		"<div class=\"abstr\">The <b>abc</b> network&#39;s   home page...</div>",
		"no markup at all",
		"<br><br/>  <hr>",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_DecodeManufacturesInput(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		once  string
		twice string
	}{
		{"markup", "&lt;b&gt;x", "<b>x", "x"},
		{"numeric ampersand", "a &#38;amp; b", "a &amp; b", "a & b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Normalize(tt.in)
			assert.Equal(t, tt.once, once)
			assert.Equal(t, tt.twice, Normalize(once))
		})
	}
}
