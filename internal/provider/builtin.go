package provider

// BuiltinVersion tags the bundled patterns. They were tuned against each
// engine's historical markup and are expected to drift; override them with a
// providers file rather than editing the engine.
const BuiltinVersion = "2007.1"

// Builtin engine names.
const (
	Ask    = "ask"
	Dmoz   = "dmoz"
	Excite = "excite"
	Google = "google"
	MSN    = "msn"
	Yahoo  = "yahoo"
)

// Extraction patterns, applied with . matching newlines.
const (
	askPattern = `<a .*? class="L4" href="(?P<url>.*?)".*?>(?P<name>.*?)</a>` +
		`.*?</div>(?P<desc>.*?)</div>`

	dmozPattern = `<li><a href="(?P<url>.*?)".*?>(?P<name>.*?)</a>` +
		`.*? - (?P<desc>.*?)<br>`

	excitePattern = `<div class="listingmain" style=""><a href="(?P<url>.*?)".*?>(?P<name>.*?)</a>` +
		`(?P<desc>.*?)</span>`

	googlePattern = `<a href="(?P<url>[^"]*?)" class=l.*?>(?P<name>.*?)</a>` +
		`.*?(?:<br>|<table.*?>)` +
		`(?P<desc>.*?)` + `(?:<font color=#008000>|<a)`

	msnPattern = `<h3><a href="(?P<url>.*?)".*?>(?P<name>.*?)</a>` +
		`</h3><p>(?P<desc>.*?)</p>`

	yahooPattern = `<li><div class="res"><div><h3><a class="yschttl spt" href="(?P<url>.*?)".*?>(?P<name>.*?)</a>` +
		`</h3></div><div class="abstr">(?P<desc>.*?)</div>`
)

// Builtins returns the bundled engine definitions in name order.
func Builtins() []Definition {
	return []Definition{
		{
			Name:           Ask,
			Version:        BuiltinVersion,
			QueryURL:       "http://www.ask.com/web?q={q}",
			PageURL:        "http://www.ask.com/web?page={n}&q={q}",
			ResultsPerPage: 10,
			PageMode:       PageOne,
			Pattern:        askPattern,
		},
		{
			Name:           Dmoz,
			Version:        BuiltinVersion,
			QueryURL:       "http://search.dmoz.org/cgi-bin/search?search={q}",
			PageURL:        "http://search.dmoz.org/cgi-bin/search?start={n}&search={q}",
			ResultsPerPage: 20,
			PageMode:       OffsetOne,
			Pattern:        dmozPattern,
		},
		{
			Name:           Excite,
			Version:        BuiltinVersion,
			QueryURL:       "http://msxml.excite.com/info.xcite/search/web/{q}",
			PageURL:        "http://msxml.excite.com/info.xcite/search/web/{q}/{n}",
			ResultsPerPage: 20,
			PageMode:       OffsetOne,
			Pattern:        excitePattern,
		},
		{
			Name:           Google,
			Version:        BuiltinVersion,
			QueryURL:       "http://www.google.com/search?q={q}",
			PageURL:        "http://www.google.com/search?start={n}&q={q}",
			ResultsPerPage: 10,
			PageMode:       OffsetZero,
			Pattern:        googlePattern,
		},
		{
			Name:           MSN,
			Version:        BuiltinVersion,
			QueryURL:       "http://search.live.com/results.aspx?q={q}",
			PageURL:        "http://search.live.com/results.aspx?q={q}&first={n}",
			ResultsPerPage: 10,
			PageMode:       OffsetOne,
			Pattern:        msnPattern,
		},
		{
			Name:           Yahoo,
			Version:        BuiltinVersion,
			QueryURL:       "http://search.yahoo.com/search?p={q}",
			PageURL:        "http://search.yahoo.com/search?p={q}&b={n}",
			ResultsPerPage: 10,
			PageMode:       OffsetOne,
			Pattern:        yahooPattern,
		},
	}
}
