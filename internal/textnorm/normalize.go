// Package textnorm converts HTML fragments captured from result pages into
// plain single-line text.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tagRe     = regexp.MustCompile(`(?s)<.*?>`)
	numericRe = regexp.MustCompile(`&#(\d{1,3});`)
	spacesRe  = regexp.MustCompile(` {2,}`)
)

var controlReplacer = strings.NewReplacer(
	"\r", " ",
	"\n", " ",
	"\t", " ",
)

// Order matters: &amp; is decoded first so "&amp;lt;" becomes "&lt;" and is
// then decoded again.
var namedEntities = []struct{ entity, text string }{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&middot;", "·"},
}

// Normalize strips tags, flattens CR/LF/TAB to spaces, decodes the common
// named entities and numeric entities in the 0-255 range, collapses runs of
// spaces and trims the result.
//
// Normalize is idempotent on its own output unless decoding produced new
// markup or a new entity: "&lt;b&gt;x" yields "<b>x", and "&#38;amp;" yields
// "&amp;". Both change again on a second pass.
func Normalize(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	for _, e := range namedEntities {
		s = strings.ReplaceAll(s, e.entity, e.text)
	}
	s = numericRe.ReplaceAllStringFunc(s, decodeNumeric)
	// Flatten after decoding so &#10; and friends become spaces too.
	s = controlReplacer.Replace(s)
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func decodeNumeric(m string) string {
	digits := m[2 : len(m)-1]
	if len(digits) > 1 && digits[0] == '0' {
		return m
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n > 255 {
		return m
	}
	return string(rune(n))
}
