package provider

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a providers file:
//
//	providers:
//	  - name: google
//	    version: "2024.2"
//	    pattern: '<a href="(?P<url>[^"]+)"...'
type File struct {
	Providers []Definition `yaml:"providers"`
}

// Parse decodes a providers file. Unknown keys are rejected so a typo does
// not silently leave a stale pattern in place.
func Parse(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "provider: parse providers file")
	}
	for i, d := range f.Providers {
		if d.Name == "" {
			return nil, &ConfigurationError{Provider: fmt.Sprintf("#%d", i), Field: "name", Reason: "must not be empty"}
		}
	}
	return f.Providers, nil
}

// LoadFile reads and parses the providers file at path.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read %s", path)
	}
	return Parse(data)
}

// Merge overlays overrides onto base. An override whose name matches a base
// definition replaces only the fields it sets; unknown names are appended.
func Merge(base, overrides []Definition) []Definition {
	out := make([]Definition, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[d.Name] = i
	}
	for _, o := range overrides {
		i, ok := index[o.Name]
		if !ok {
			index[o.Name] = len(out)
			out = append(out, o)
			continue
		}
		out[i] = overlay(out[i], o)
	}
	return out
}

func overlay(d, o Definition) Definition {
	if o.Version != "" {
		d.Version = o.Version
	}
	if o.QueryURL != "" {
		d.QueryURL = o.QueryURL
	}
	if o.PageURL != "" {
		d.PageURL = o.PageURL
	}
	if o.ResultsPerPage != 0 {
		d.ResultsPerPage = o.ResultsPerPage
	}
	if o.PageMode != "" {
		d.PageMode = o.PageMode
	}
	if o.WindowStart != "" {
		d.WindowStart = o.WindowStart
	}
	if o.WindowEnd != "" {
		d.WindowEnd = o.WindowEnd
	}
	if o.Pattern != "" {
		d.Pattern = o.Pattern
	}
	return d
}
